package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	flag "github.com/spf13/pflag"

	"github.com/funcqc/funcqc/internal/output"
	"github.com/funcqc/funcqc/internal/ui"
	"github.com/funcqc/funcqc/pkg/lineage"
	"github.com/funcqc/funcqc/pkg/pipeline"
	"github.com/funcqc/funcqc/pkg/storage"
)

// runServe executes the 'serve' command: a thin read-only HTTP API
// over the Snapshot Store's query, diff, and lineage result shapes,
// for tooling that doesn't want to shell out to the CLI.
func runServe(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:8420", "HTTP listen address")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: funcqc serve [options]

Serves a read-only HTTP API: GET /snapshots, GET /snapshots/{id},
GET /diff?from=&to=, GET /lineage?from=&to=.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, _ := loadConfig(globals)
	store := openStore(globals, cfg)
	defer store.Close()

	cwd, err := os.Getwd()
	if err != nil {
		fatal(globals, fmt.Errorf("cannot get current directory: %w", err))
	}
	resolver := newResolver(globals, cfg, store, cwd)
	p := pipeline.New(pipeline.Config{}, store, newLogger(globals))
	lcfg := lineage.Config{
		MinSimilarity:        cfg.LineageMinSignificance,
		MinSignificanceScore: cfg.LineageSplitThreshold * 100,
		EnableSplitDetection: cfg.AllowSplitDetection,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/snapshots", func(w http.ResponseWriter, req *http.Request) {
		snaps, err := store.GetSnapshots(req.Context(), storage.ScopeQuery{Limit: 100})
		writeJSONOrError(w, snaps, err)
	})
	r.Get("/snapshots/{id}", func(w http.ResponseWriter, req *http.Request) {
		snap, err := lookupSnapshot(req.Context(), store, chi.URLParam(req, "id"))
		writeJSONOrError(w, snap, err)
	})
	r.Get("/diff", func(w http.ResponseWriter, req *http.Request) {
		fromID, toID, err := resolveFromTo(req.Context(), resolver, req)
		if err != nil {
			writeJSONOrError(w, nil, err)
			return
		}
		d, err := p.Compare(req.Context(), fromID, toID)
		writeJSONOrError(w, d, err)
	})
	r.Get("/lineage", func(w http.ResponseWriter, req *http.Request) {
		fromID, toID, err := resolveFromTo(req.Context(), resolver, req)
		if err != nil {
			writeJSONOrError(w, nil, err)
			return
		}
		d, err := p.Compare(req.Context(), fromID, toID)
		if err != nil {
			writeJSONOrError(w, nil, err)
			return
		}
		lineages, err := p.DetectLineage(req.Context(), d, lcfg, "", false)
		writeJSONOrError(w, lineages, err)
	})

	ui.Successf("serving read-only query API on http://%s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil && err != http.ErrServerClosed {
		fatal(globals, err)
	}
}

func resolveFromTo(ctx context.Context, r interface {
	Resolve(ctx context.Context, identifier string) (string, error)
}, req *http.Request) (string, string, error) {
	from := req.URL.Query().Get("from")
	to := req.URL.Query().Get("to")
	if from == "" || to == "" {
		return "", "", fmt.Errorf("both from and to query parameters are required")
	}
	fromID, err := r.Resolve(ctx, from)
	if err != nil {
		return "", "", err
	}
	toID, err := r.Resolve(ctx, to)
	if err != nil {
		return "", "", err
	}
	return fromID, toID, nil
}

// writeJSONOrError renders data (or err) as the same versioned
// Envelope the CLI's --json flag produces, so a client that speaks
// one funcqc JSON shape speaks both.
func writeJSONOrError(w http.ResponseWriter, data any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = output.JSONTo(w, map[string]string{"error": err.Error()})
		return
	}
	_ = output.JSONTo(w, data)
}
