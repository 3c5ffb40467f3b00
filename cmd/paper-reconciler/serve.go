// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-reconciler/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reconciliation over HTTP",
	Long: `Serve starts the HTTP surface:

  GET    /metadata/single_paper?volume_id=&paper_id=
  GET    /metadata/volumes?volumes_ids=&construct_graph=
  DELETE /delete_graph

Graph endpoints need graph.uri to be configured.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default server.addr)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, appOptions{graph: true, review: true})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	if a.cfg.LogMode == "prod" || a.cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	cfg := server.Config{
		Catalogue: a.catalogue,
		Runner:    a.runner(false),
		Log:       log,
	}
	if a.graph != nil {
		cfg.GraphRunner = a.runner(true)
		cfg.Graph = a.graph
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
