// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dblp is the authoritative bibliographic lookup backed by the
// DBLP publication search API.
package dblp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdiddy/paper-reconciler/internal/httputil"
	"github.com/pdiddy/paper-reconciler/internal/logging"
	"github.com/pdiddy/paper-reconciler/internal/normalize"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// searchPath is the publication search endpoint relative to the base URL.
const searchPath = "/search/publ/api"

// homonymSuffix matches the disambiguation number DBLP appends to names
// shared by several people ("Jane Doe 0001").
var homonymSuffix = regexp.MustCompile(`\s+\d{4}$`)

// Client queries DBLP. Results are cached per normalized title, including
// empty ones, so a batch does not repeat misses.
type Client struct {
	http    *httputil.Client
	baseURL string
	maxHits int
	cache   *gocache.Cache
	log     *logging.Logger
}

// New builds a client from cfg.
func New(cfg types.LookupConfig, log *logging.Logger) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxHits := cfg.MaxHits
	if maxHits <= 0 {
		maxHits = 10
	}
	return &Client{
		http:    httputil.NewClient(cfg.HTTPConfig),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		maxHits: maxHits,
		cache:   gocache.New(ttl, 2*ttl),
		log:     logging.OrNop(log).With("lookup", "dblp"),
	}
}

// Search tries each title in order and returns the first non-empty hit
// set. Blank titles are skipped.
func (c *Client) Search(ctx context.Context, titles []string) ([]types.AuthoritativeHit, error) {
	for _, t := range titles {
		if strings.TrimSpace(t) == "" {
			continue
		}
		hits, err := c.searchOne(ctx, t)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			return hits, nil
		}
	}
	return nil, nil
}

func (c *Client) searchOne(ctx context.Context, title string) ([]types.AuthoritativeHit, error) {
	key := normalize.Normalize(title)
	if v, ok := c.cache.Get(key); ok {
		return v.([]types.AuthoritativeHit), nil
	}

	q := url.Values{}
	q.Set("q", title)
	q.Set("format", "json")
	q.Set("h", strconv.Itoa(c.maxHits))
	u := c.baseURL + searchPath + "?" + q.Encode()

	data, err := c.http.GetBytes(ctx, u, "application/json")
	if err != nil {
		return nil, fmt.Errorf("dblp search: %w", err)
	}
	hits, err := parseResponse(data)
	if err != nil {
		return nil, fmt.Errorf("dblp search %q: %w", title, err)
	}

	c.log.Debug("dblp search", "title", title, "hits", len(hits))
	c.cache.SetDefault(key, hits)
	return hits, nil
}

// searchResponse mirrors the DBLP JSON envelope. Several fields switch
// between a single value and an array, so they are decoded lazily.
type searchResponse struct {
	Result struct {
		Hits struct {
			Hit []struct {
				Info hitInfo `json:"info"`
			} `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

type hitInfo struct {
	Title   string          `json:"title"`
	URL     string          `json:"url"`
	EE      json.RawMessage `json:"ee"`
	Authors struct {
		Author json.RawMessage `json:"author"`
	} `json:"authors"`
}

type dblpAuthor struct {
	Text string `json:"text"`
}

func parseResponse(data []byte) ([]types.AuthoritativeHit, error) {
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	var hits []types.AuthoritativeHit
	for _, h := range resp.Result.Hits.Hit {
		authors, err := decodeAuthors(h.Info.Authors.Author)
		if err != nil {
			return nil, err
		}
		link := h.Info.URL
		if ee := firstString(h.Info.EE); ee != "" {
			link = ee
		}
		hits = append(hits, types.AuthoritativeHit{
			Title:   strings.TrimSuffix(strings.TrimSpace(h.Info.Title), "."),
			Authors: authors,
			Link:    link,
		})
	}
	return hits, nil
}

// decodeAuthors accepts a single author object or an array of them.
func decodeAuthors(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []dblpAuthor
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("parsing authors: %w", err)
		}
	} else {
		var one dblpAuthor
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("parsing author: %w", err)
		}
		list = []dblpAuthor{one}
	}

	names := make([]string, 0, len(list))
	for _, a := range list {
		if name := homonymSuffix.ReplaceAllString(strings.TrimSpace(a.Text), ""); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// firstString accepts a string or an array of strings and returns the
// first value.
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
