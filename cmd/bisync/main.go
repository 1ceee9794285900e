// Command bisync synchronises Tableau workbook metadata into a field dictionary.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/bisync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bisync/internal/adapters/driven/corrections"
	"github.com/custodia-labs/bisync/internal/adapters/driven/parser/twb"
	storagefile "github.com/custodia-labs/bisync/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/bisync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bisync/internal/adapters/driving/cli"
	"github.com/custodia-labs/bisync/internal/connectors/tableau"
	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/core/services"
	"github.com/custodia-labs/bisync/internal/logger"
)

// EnvHome overrides the data directory.
const EnvHome = "BISYNC_HOME"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	dataDir := os.Getenv(EnvHome)
	if dataDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		dataDir = dir
	}

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bisync: %v\n", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore, dataDir)

	cli.SetVersion(version)

	// Settings problems are reported by the commands that need them, so
	// `config set` can still be used to fix them.
	settings, err := settingsService.Get()
	if err != nil {
		cli.Configure(cli.Services{Settings: settingsService, ServerErr: err})
		return cli.Execute(ctx)
	}

	store, err := sqlite.NewStore(settings.Paths.DatabaseFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bisync: %v\n", err)
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close database: %v", err)
		}
	}()

	cache := storagefile.NewAssetCache(settings.Paths.WorkbooksDir)
	parser := twb.NewParser()

	var correctionSource driven.CorrectionSource
	if settings.Paths.CorrectionsFile != "" {
		correctionSource = corrections.NewSource(settings.Paths.CorrectionsFile)
	}
	var archive driven.QueryArchive
	if settings.Paths.QueriesDir != "" {
		archive = storagefile.NewQueryArchive(settings.Paths.QueriesDir)
	}

	svc := cli.Services{
		Settings:    settingsService,
		Definitions: services.NewDefinitionService(store),
		Schema:      services.NewSchemaService(store),
		ReadCorrections: func(path string) ([]domain.CorrectionRecord, error) {
			return corrections.NewSource(path).Load(ctx)
		},
		WriteDefinitions: func(w io.Writer, defs []domain.DefinitionRecord) error {
			return corrections.Write(w, defs)
		},
	}

	client, err := tableau.NewClient(tableau.ConfigFromSettings(settings.Server))
	if err != nil {
		svc.ServerErr = err
		svc.Queries = services.NewQueryService(cache, parser, twb.NewRewriter(), archive, nil)
		cli.Configure(svc)
		return cli.Execute(ctx)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Debug("sign out: %v", err)
		}
	}()

	engine := services.NewTransferEngine(client, services.WithWorkers(settings.Sync.Workers))
	svc.Sync = services.NewSyncPipeline(
		client,
		parser,
		storagefile.NewSnapshotStore(settings.Paths.SnapshotFile),
		store,
		cache,
		correctionSource,
		archive,
		services.PipelineConfig{
			Workers:        settings.Sync.Workers,
			DefaultProject: settings.Sync.DefaultProject,
		},
	)
	svc.NewScheduler = func(every time.Duration, opts driving.RunOptions,
		onResult func(*driving.SyncReport, error)) driving.Scheduler {
		return services.NewScheduler(svc.Sync, every, opts, onResult)
	}
	svc.Catalog = services.NewCatalogFetcher(client)
	svc.Queries = services.NewQueryService(cache, parser, twb.NewRewriter(), archive, engine)

	cli.Configure(svc)
	return cli.Execute(ctx)
}
