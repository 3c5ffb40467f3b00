// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reconciler/internal/assemble"
	"github.com/pdiddy/paper-reconciler/internal/graph"
	"github.com/pdiddy/paper-reconciler/internal/pipeline"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedSource struct{ id types.SourceID }

func (s fixedSource) Source() types.SourceID { return s.id }

func (s fixedSource) Extract(_ context.Context, ref types.PaperRef) (types.ExtractionRecord, error) {
	return types.ExtractionRecord{
		Title: "On " + ref.Key,
		Authors: []types.Author{
			{Name: "Jane Doe", Affiliations: []string{"Univ A"}, Emails: []string{"jane@a.edu"}},
			{Name: "John Roe", Affiliations: []string{"Univ B"}},
		},
	}, nil
}

type fakeCatalogue struct {
	volumes    []int
	volumesErr error
}

func (fakeCatalogue) Ref(vol int, key string) types.PaperRef {
	return types.PaperRef{Volume: vol, Key: key, URL: fmt.Sprintf("http://ceur/Vol-%d/%s.pdf", vol, key)}
}

func (fakeCatalogue) Venue(_ context.Context, vol int) (types.VenueContext, error) {
	if vol == 13 {
		return types.VenueContext{}, errors.New("no venue")
	}
	return types.VenueContext{Proceeding: "Proc", Event: "Workshop"}, nil
}

func (c fakeCatalogue) Volumes(context.Context) ([]int, error) {
	return c.volumes, c.volumesErr
}

func (c fakeCatalogue) Papers(_ context.Context, vol int) ([]types.PaperRef, error) {
	return []types.PaperRef{c.Ref(vol, "paper1"), c.Ref(vol, "paper2")}, nil
}

type fakeGraph struct {
	deleted int
	err     error
}

func (g *fakeGraph) DeleteAll(context.Context) error {
	g.deleted++
	return g.err
}

func newRunner(cat fakeCatalogue, opts ...pipeline.Option) *pipeline.Runner {
	opts = append(opts,
		pipeline.WithSources(fixedSource{id: types.SourceStructuralA}, fixedSource{id: types.SourceStructuralB}),
		pipeline.WithCatalogue(cat),
	)
	return pipeline.New(assemble.New(), types.PipelineConfig{Workers: 2}, opts...)
}

func do(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error
}

func TestSinglePaper(t *testing.T) {
	cat := fakeCatalogue{}
	router := NewRouter(Config{Catalogue: cat, Runner: newRunner(cat)})

	w := do(t, router, http.MethodGet, "/metadata/single_paper?volume_id=3&paper_id=7")
	require.Equal(t, http.StatusOK, w.Code)

	var got PaperMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "http://ceur/Vol-3/paper7.pdf", got.PaperPath)
	assert.Equal(t, "On paper7", got.PaperTitle)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, got.Name)
	assert.Equal(t, []string{"Univ A", "Univ B"}, got.Affiliation)
	assert.Equal(t, []string{"jane@a.edu", ""}, got.Email)
	assert.Equal(t, "Proc", got.Proceeding)
	assert.Equal(t, "Workshop", got.Event)
	assert.Equal(t, assemble.StatusResolved, got.Status)
}

func TestSinglePaper_VenueUnavailable(t *testing.T) {
	cat := fakeCatalogue{}
	router := NewRouter(Config{Catalogue: cat, Runner: newRunner(cat)})

	w := do(t, router, http.MethodGet, "/metadata/single_paper?volume_id=13&paper_id=short1")
	require.Equal(t, http.StatusOK, w.Code)

	var got PaperMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "http://ceur/Vol-13/short1.pdf", got.PaperPath)
	assert.Empty(t, got.Proceeding)
}

func TestSinglePaper_BadParameters(t *testing.T) {
	cat := fakeCatalogue{}
	router := NewRouter(Config{Catalogue: cat, Runner: newRunner(cat)})

	tests := []struct {
		target string
		code   string
	}{
		{"/metadata/single_paper?paper_id=1", "bad_volume"},
		{"/metadata/single_paper?volume_id=abc&paper_id=1", "bad_volume"},
		{"/metadata/single_paper?volume_id=0&paper_id=1", "bad_volume"},
		{"/metadata/single_paper?volume_id=1", "bad_paper"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := do(t, router, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestVolumes(t *testing.T) {
	cat := fakeCatalogue{}
	router := NewRouter(Config{Catalogue: cat, Runner: newRunner(cat)})

	w := do(t, router, http.MethodGet, "/metadata/volumes?volumes_ids=4&volumes_ids=5")
	require.Equal(t, http.StatusOK, w.Code)

	var got VolumesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got.RunID)
	assert.Equal(t, 4, got.Resolved)
	require.Len(t, got.Papers, 4)
	assert.Equal(t, "http://ceur/Vol-4/paper1.pdf", got.Papers[0].PaperPath)
	assert.Equal(t, "http://ceur/Vol-5/paper2.pdf", got.Papers[3].PaperPath)
}

func TestVolumes_AllVolumes(t *testing.T) {
	cat := fakeCatalogue{volumes: []int{8}}
	router := NewRouter(Config{Catalogue: cat, Runner: newRunner(cat)})

	w := do(t, router, http.MethodGet, "/metadata/volumes?all_volumes=true")
	require.Equal(t, http.StatusOK, w.Code)
	var got VolumesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Papers, 2)

	broken := fakeCatalogue{volumesErr: errors.New("index unavailable")}
	router = NewRouter(Config{Catalogue: broken, Runner: newRunner(broken)})
	w = do(t, router, http.MethodGet, "/metadata/volumes?all_volumes=true")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "index unavailable")
}

func TestVolumes_ConstructGraph(t *testing.T) {
	cat := fakeCatalogue{}
	store := graph.NewMemoryStore()

	router := NewRouter(Config{Catalogue: cat, Runner: newRunner(cat)})
	w := do(t, router, http.MethodGet, "/metadata/volumes?volumes_ids=1&construct_graph=true")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	router = NewRouter(Config{
		Catalogue:   cat,
		Runner:      newRunner(cat),
		GraphRunner: newRunner(cat, pipeline.WithStore(store)),
	})
	w = do(t, router, http.MethodGet, "/metadata/volumes?volumes_ids=1&construct_graph=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, store.NodeCount(graph.LabelPaper))

	w = do(t, router, http.MethodGet, "/metadata/volumes?volumes_ids=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, store.NodeCount(graph.LabelPaper))
}

func TestVolumes_BadParameters(t *testing.T) {
	cat := fakeCatalogue{}
	router := NewRouter(Config{Catalogue: cat, Runner: newRunner(cat)})

	w := do(t, router, http.MethodGet, "/metadata/volumes")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no_volumes", decodeError(t, w).Code)

	w = do(t, router, http.MethodGet, "/metadata/volumes?volumes_ids=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_volume", decodeError(t, w).Code)
}

func TestDeleteGraph(t *testing.T) {
	cat := fakeCatalogue{}

	router := NewRouter(Config{Catalogue: cat, Runner: newRunner(cat)})
	w := do(t, router, http.MethodDelete, "/delete_graph")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	g := &fakeGraph{}
	router = NewRouter(Config{Catalogue: cat, Runner: newRunner(cat), Graph: g})
	w = do(t, router, http.MethodDelete, "/delete_graph")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Knowledge graph deleted successfully!")
	assert.Equal(t, 1, g.deleted)

	g.err = errors.New("bolt: connection refused")
	w = do(t, router, http.MethodDelete, "/delete_graph")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "graph", decodeError(t, w).Code)
}

func TestPaperKey(t *testing.T) {
	assert.Equal(t, "paper12", PaperKey("12"))
	assert.Equal(t, "short3", PaperKey("short3"))
}

func TestHealthcheck(t *testing.T) {
	router := NewRouter(Config{})
	w := do(t, router, http.MethodGet, "/healthcheck")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
