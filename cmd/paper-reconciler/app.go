// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reconciler/internal/assemble"
	"github.com/pdiddy/paper-reconciler/internal/catalogue"
	"github.com/pdiddy/paper-reconciler/internal/convert"
	"github.com/pdiddy/paper-reconciler/internal/dblp"
	"github.com/pdiddy/paper-reconciler/internal/graph"
	"github.com/pdiddy/paper-reconciler/internal/llm"
	"github.com/pdiddy/paper-reconciler/internal/normalize"
	"github.com/pdiddy/paper-reconciler/internal/pipeline"
	"github.com/pdiddy/paper-reconciler/internal/review"
	"github.com/pdiddy/paper-reconciler/internal/structural"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// app holds the collaborators built from the configuration for one command.
type app struct {
	cfg       types.Config
	catalogue *catalogue.Client
	assembler *assemble.Assembler
	sources   []pipeline.Source
	graph     *graph.Neo4jStore
	review    *review.Store
}

// appOptions selects the optional collaborators a command needs.
type appOptions struct {
	graph  bool
	review bool
}

func newApp(ctx context.Context, cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	a.catalogue = catalogue.New(cfg.Catalogue, log)

	asmOpts := []assemble.Option{
		assemble.WithLookup(dblp.New(cfg.Lookup, log)),
		assemble.WithLogger(log),
	}
	if path, _ := cmd.Flags().GetString("dictionary"); path != "" {
		dict, err := normalize.LoadDictionaryFile(path)
		if err != nil {
			return nil, err
		}
		asmOpts = append(asmOpts, assemble.WithSpeller(dict))
	}
	a.assembler = assemble.New(asmOpts...)

	a.sources = []pipeline.Source{
		structural.NewGROBID(a.catalogue),
		structural.NewCERMINE(a.catalogue),
	}
	if cfg.LLM.Provider != "" && cfg.LLM.Provider != types.ProviderNone {
		ext, err := a.llmExtractor(ctx)
		if err != nil {
			return nil, err
		}
		a.sources = append(a.sources, ext)
	}

	if opts.graph && cfg.Graph.URI != "" {
		store, err := graph.Open(ctx, cfg.Graph, log)
		if err != nil {
			return nil, err
		}
		a.graph = store
	}
	if opts.review && cfg.Review.DBPath != "" {
		store, err := review.Open(cfg.Review)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.review = store
	}
	return a, nil
}

func (a *app) llmExtractor(ctx context.Context) (*llm.Extractor, error) {
	backend, err := llm.NewBackend(a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm extractor: %w", err)
	}
	conv, err := convert.New(ctx, a.cfg.LLM.Converter)
	if err != nil {
		return nil, fmt.Errorf("llm extractor: %w", err)
	}
	return llm.New(backend, a.catalogue, conv, a.cfg.LLM.MaxRetries, log), nil
}

// runner builds a pipeline runner. Projection is enabled only when project
// is set and a graph store is open.
func (a *app) runner(project bool) *pipeline.Runner {
	opts := []pipeline.Option{
		pipeline.WithSources(a.sources...),
		pipeline.WithCatalogue(a.catalogue),
		pipeline.WithLogger(log),
	}
	if project && a.graph != nil {
		opts = append(opts, pipeline.WithStore(a.graph))
	}
	if a.review != nil {
		opts = append(opts, pipeline.WithRecorder(a.review))
	}
	return pipeline.New(a.assembler, a.cfg.Pipeline, opts...)
}

// requireGraph returns the open graph store or an error naming the setting.
func (a *app) requireGraph() (*graph.Neo4jStore, error) {
	if a.graph == nil {
		return nil, fmt.Errorf("no graph store configured: set graph.uri or --graph-uri")
	}
	return a.graph, nil
}

func (a *app) Close(ctx context.Context) {
	if a.graph != nil {
		if err := a.graph.Close(ctx); err != nil {
			log.Warn("closing graph store", "error", err)
		}
	}
	if a.review != nil {
		if err := a.review.Close(); err != nil {
			log.Warn("closing review store", "error", err)
		}
	}
}
