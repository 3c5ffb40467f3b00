// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalogue talks to the proceedings catalogue: the volume index,
// the paper listing of each volume, the per-paper artifacts (PDF and the
// pre-rendered structural XML) and the venue metadata of a volume.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/paper-reconciler/internal/httputil"
	"github.com/pdiddy/paper-reconciler/internal/logging"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// ExtPDF is the extension of a paper's PDF artifact.
const ExtPDF = ".pdf"

var volumeHref = regexp.MustCompile(`(?:^|/)Vol-(\d+)/?$`)

// excludedKeys lists key fragments of volume entries that are not papers.
var excludedKeys = []string{"preface", "index", "invited"}

// Client reads the catalogue.
type Client struct {
	http    *httputil.Client
	baseURL string
	log     *logging.Logger
}

// New builds a catalogue client from cfg.
func New(cfg types.CatalogueConfig, log *logging.Logger) *Client {
	return &Client{
		http:    httputil.NewClient(cfg.HTTPConfig),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     logging.OrNop(log).With("component", "catalogue"),
	}
}

// Ref returns the reference of paper key in volume vol.
func (c *Client) Ref(vol int, key string) types.PaperRef {
	return types.PaperRef{
		Volume: vol,
		Key:    key,
		URL:    c.artifactURL(vol, key, ExtPDF),
	}
}

func (c *Client) artifactURL(vol int, key, ext string) string {
	return fmt.Sprintf("%s/Vol-%d/%s%s", c.baseURL, vol, url.PathEscape(key), ext)
}

// Volumes lists the volume numbers linked from the catalogue index, in
// ascending order.
func (c *Client) Volumes(ctx context.Context) ([]int, error) {
	hrefs, err := c.links(ctx, c.baseURL+"/index.html")
	if err != nil {
		return nil, fmt.Errorf("listing volumes: %w", err)
	}

	var vols []int
	for _, h := range hrefs {
		m := volumeHref.FindStringSubmatch(h)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		vols = append(vols, n)
	}
	slices.Sort(vols)
	return slices.Compact(vols), nil
}

// Papers lists the paper references of volume vol, sorted by key. Front
// matter (prefaces, indexes, invited talks) is excluded.
func (c *Client) Papers(ctx context.Context, vol int) ([]types.PaperRef, error) {
	hrefs, err := c.links(ctx, fmt.Sprintf("%s/Vol-%d", c.baseURL, vol))
	if err != nil {
		return nil, fmt.Errorf("listing volume %d: %w", vol, err)
	}

	keys := PaperKeys(vol, hrefs)
	refs := make([]types.PaperRef, len(keys))
	for i, k := range keys {
		refs[i] = c.Ref(vol, k)
	}
	c.log.Debug("listed volume", "volume", vol, "papers", len(refs))
	return refs, nil
}

// PaperKeys extracts the sorted, deduplicated paper keys of volume vol
// from a page's link targets.
func PaperKeys(vol int, hrefs []string) []string {
	re := regexp.MustCompile(fmt.Sprintf(`Vol-%d/([^/]+)\.pdf$`, vol))
	var keys []string
	for _, h := range hrefs {
		m := re.FindStringSubmatch(h)
		if m == nil {
			continue
		}
		key, err := url.PathUnescape(m[1])
		if err != nil {
			key = m[1]
		}
		if excluded(key) {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

func excluded(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range excludedKeys {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Fetch downloads the artifact of ref with extension ext (".grobid",
// ".cermine" or ".pdf").
func (c *Client) Fetch(ctx context.Context, ref types.PaperRef, ext string) ([]byte, error) {
	return c.http.GetBytes(ctx, c.artifactURL(ref.Volume, ref.Key, ext), "")
}

// Venue returns the proceeding and event of volume vol. Missing fields are
// empty. On failure the zero context is returned with the error so the
// caller can carry on without venue data.
func (c *Client) Venue(ctx context.Context, vol int) (types.VenueContext, error) {
	data, err := c.http.GetBytes(ctx, fmt.Sprintf("%s/Vol-%d.json", c.baseURL, vol), "application/json")
	if err != nil {
		return types.VenueContext{}, fmt.Errorf("venue of volume %d: %w", vol, err)
	}
	return ParseVenue(data)
}

// ParseVenue reads the volume metadata document. Only string values are
// taken; anything else counts as missing.
func ParseVenue(data []byte) (types.VenueContext, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return types.VenueContext{}, fmt.Errorf("parsing venue: %w", err)
	}
	str := func(key string) string {
		s, _ := doc[key].(string)
		return strings.TrimSpace(s)
	}
	return types.VenueContext{
		Proceeding:  str("wd.itemLabel"),
		Event:       str("wd.eventLabel"),
		EventSeries: str("wd.eventSeriesLabel"),
	}, nil
}

func (c *Client) links(ctx context.Context, pageURL string) ([]string, error) {
	resp, err := c.http.Get(ctx, pageURL, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return Links(resp.Body)
}

// Links returns the href of every anchor in an HTML document, in document
// order.
func Links(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					if h := strings.TrimSpace(attr.Val); h != "" {
						hrefs = append(hrefs, h)
					}
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return hrefs, nil
}
