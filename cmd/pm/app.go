package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/matsen/pubmanager/internal/config"
	"github.com/matsen/pubmanager/internal/crossref"
	"github.com/matsen/pubmanager/internal/importer"
	"github.com/matsen/pubmanager/internal/registry"
	"github.com/matsen/pubmanager/internal/relation"
	"github.com/matsen/pubmanager/internal/repair"
	"github.com/matsen/pubmanager/internal/storage"
)

// app wires the services of one repository.
type app struct {
	root     string
	cfg      *config.Config
	db       *storage.DB
	registry *registry.Registry
	rel      *relation.Relations
	repair   *repair.Tools
}

// openApp opens the current repository or exits.
func openApp() *app {
	root := findRepo()
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}

	logger := slog.Default()
	var opts []registry.Option
	opts = append(opts, registry.WithLogger(logger))
	if cfg.SiteURL != "" {
		opts = append(opts, registry.WithPermalink(registry.Permalinker(cfg.SiteURL)))
	}
	reg := registry.New(db, cfg.TeamKind, opts...)
	rel := relation.New(db, reg, cfg.TeamKind, logger)

	return &app{
		root:     root,
		cfg:      cfg,
		db:       db,
		registry: reg,
		rel:      rel,
		repair:   repair.New(db, reg, rel, cfg.TeamKind, logger),
	}
}

func (a *app) Close() {
	a.db.Close()
}

// pipeline builds the Crossref import pipeline from the repository config.
func (a *app) pipeline() *importer.Pipeline {
	opts := []crossref.ClientOption{
		crossref.WithRate(a.cfg.CrossrefRate),
		crossref.WithTimeout(a.cfg.CrossrefTimeout()),
	}
	if mailto := a.cfg.Mailto(); mailto != "" {
		opts = append(opts, crossref.WithMailto(mailto))
	}
	if base := os.Getenv("PM_CROSSREF_URL"); base != "" {
		opts = append(opts, crossref.WithBaseURL(base))
	}
	return importer.New(crossref.NewClient(opts...), a.db, a.registry, a.rel,
		importer.WithLogger(slog.Default()))
}

// parseID parses a positive entity id argument or exits.
func parseID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		exitWithError(ExitDataError, "invalid id: %s", arg)
	}
	return id
}
