// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes reconciliation over HTTP:
//
//	GET    /metadata/single_paper?volume_id=&paper_id=
//	GET    /metadata/volumes?volumes_ids=&construct_graph=&all_volumes=
//	DELETE /delete_graph
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/paper-reconciler/internal/assemble"
	"github.com/pdiddy/paper-reconciler/internal/logging"
	"github.com/pdiddy/paper-reconciler/internal/pipeline"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// Catalogue resolves paper references and venues.
type Catalogue interface {
	Ref(vol int, key string) types.PaperRef
	Venue(ctx context.Context, vol int) (types.VenueContext, error)
	Volumes(ctx context.Context) ([]int, error)
}

// Runner processes papers.
type Runner interface {
	ProcessPaper(ctx context.Context, ref types.PaperRef, venue types.VenueContext) pipeline.PaperResult
	ProcessVolumes(ctx context.Context, vols []int, w io.Writer) (pipeline.BatchResult, []pipeline.PaperResult, error)
}

// GraphAdmin clears the graph store.
type GraphAdmin interface {
	DeleteAll(ctx context.Context) error
}

// Config wires the handlers.
type Config struct {
	Catalogue Catalogue
	// Runner processes papers without graph projection.
	Runner Runner
	// GraphRunner processes papers with projection. Nil disables
	// construct_graph.
	GraphRunner Runner
	// Graph is nil when no graph store is configured.
	Graph GraphAdmin
	Log   *logging.Logger
}

type handler struct {
	cfg Config
	log *logging.Logger
}

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, errorEnvelope{Error: APIError{Message: err.Error(), Code: code}})
}

// PaperMetadata is the flattened view of one assembled paper. The name,
// affiliation and email lists are parallel, one element per author.
type PaperMetadata struct {
	PaperPath   string           `json:"paper_path"`
	PaperTitle  string           `json:"paper_title"`
	Name        []string         `json:"name"`
	Affiliation []string         `json:"affiliation"`
	Email       []string         `json:"email"`
	Proceeding  string           `json:"proceeding"`
	Event       string           `json:"event"`
	Status      assemble.Status  `json:"status"`
	Issues      []assemble.Issue `json:"issues,omitempty"`
}

// Flatten converts a paper result to its HTTP view.
func Flatten(res pipeline.PaperResult) PaperMetadata {
	m := PaperMetadata{
		PaperPath:   res.Ref.URL,
		PaperTitle:  res.Paper.Title,
		Name:        []string{},
		Affiliation: []string{},
		Email:       []string{},
		Proceeding:  res.Paper.Proceeding,
		Event:       res.Paper.Event,
		Status:      res.Status(),
		Issues:      res.Issues,
	}
	for _, a := range res.Paper.Authors {
		m.Name = append(m.Name, a.Name)
		m.Affiliation = append(m.Affiliation, a.AffiliationText())
		m.Email = append(m.Email, a.EmailText())
	}
	return m
}

// VolumesResponse is the body of /metadata/volumes.
type VolumesResponse struct {
	RunID       string          `json:"run_id"`
	Resolved    int             `json:"resolved"`
	NeedsReview int             `json:"needs_review"`
	Failed      int             `json:"failed"`
	Papers      []PaperMetadata `json:"papers"`
}

// NewRouter builds the gin engine.
func NewRouter(cfg Config) *gin.Engine {
	h := &handler{cfg: cfg, log: logging.OrNop(cfg.Log).With("component", "server")}

	router := gin.New()
	router.Use(gin.Recovery(), h.requestLog())

	router.GET("/healthcheck", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metadata/single_paper", h.singlePaper)
	router.GET("/metadata/volumes", h.volumes)
	router.DELETE("/delete_graph", h.deleteGraph)
	return router
}

func (h *handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// PaperKey maps the paper_id parameter to a catalogue key. A bare number n
// means "paper<n>".
func PaperKey(id string) string {
	if _, err := strconv.Atoi(id); err == nil {
		return "paper" + id
	}
	return id
}

// GET /metadata/single_paper
func (h *handler) singlePaper(c *gin.Context) {
	vol, err := strconv.Atoi(c.Query("volume_id"))
	if err != nil || vol <= 0 {
		respondError(c, http.StatusBadRequest, "bad_volume", fmt.Errorf("volume_id must be a positive integer"))
		return
	}
	id := c.Query("paper_id")
	if id == "" {
		respondError(c, http.StatusBadRequest, "bad_paper", fmt.Errorf("paper_id is required"))
		return
	}

	ctx := c.Request.Context()
	venue, err := h.cfg.Catalogue.Venue(ctx, vol)
	if err != nil {
		h.log.Warn("venue unavailable", "volume", vol, "error", err)
	}
	res := h.cfg.Runner.ProcessPaper(ctx, h.cfg.Catalogue.Ref(vol, PaperKey(id)), venue)
	c.JSON(http.StatusOK, Flatten(res))
}

// GET /metadata/volumes
func (h *handler) volumes(c *gin.Context) {
	ctx := c.Request.Context()

	var vols []int
	if c.Query("all_volumes") == "true" {
		all, err := h.cfg.Catalogue.Volumes(ctx)
		if err != nil {
			respondError(c, http.StatusBadGateway, "catalogue", err)
			return
		}
		vols = all
	} else {
		for _, raw := range c.QueryArray("volumes_ids") {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				respondError(c, http.StatusBadRequest, "bad_volume", fmt.Errorf("invalid volume id %q", raw))
				return
			}
			vols = append(vols, v)
		}
	}
	if len(vols) == 0 {
		respondError(c, http.StatusBadRequest, "no_volumes", fmt.Errorf("either volumes_ids or all_volumes must be given"))
		return
	}

	runner := h.cfg.Runner
	if c.Query("construct_graph") == "true" {
		if h.cfg.GraphRunner == nil {
			respondError(c, http.StatusServiceUnavailable, "no_graph", fmt.Errorf("no graph store configured"))
			return
		}
		runner = h.cfg.GraphRunner
	}

	batch, results, err := runner.ProcessVolumes(ctx, vols, io.Discard)
	if err != nil && !errors.Is(err, context.Canceled) {
		respondError(c, http.StatusInternalServerError, "pipeline", err)
		return
	}

	resp := VolumesResponse{
		RunID:       batch.RunID,
		Resolved:    batch.Resolved,
		NeedsReview: batch.NeedsReview,
		Failed:      batch.Failed,
		Papers:      make([]PaperMetadata, 0, len(results)),
	}
	for _, r := range results {
		resp.Papers = append(resp.Papers, Flatten(r))
	}
	c.JSON(http.StatusOK, resp)
}

// DELETE /delete_graph
func (h *handler) deleteGraph(c *gin.Context) {
	if h.cfg.Graph == nil {
		respondError(c, http.StatusServiceUnavailable, "no_graph", fmt.Errorf("no graph store configured"))
		return
	}
	if err := h.cfg.Graph.DeleteAll(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, "graph", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Knowledge graph deleted successfully!"})
}
