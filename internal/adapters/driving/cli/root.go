// Package cli implements the bisync command line.
//
// Commands call the driving ports installed by Configure. A command whose
// service is missing fails with a hint instead of panicking, so read-only
// commands such as `config list` work before the server is configured.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/logger"
)

var (
	version = "dev"
	verbose bool

	syncPipeline      driving.SyncPipeline
	settingsService   driving.SettingsService
	definitionService driving.DefinitionService
	catalogService    driving.CatalogService
	queryService      driving.QueryService
	schemaService     driving.SchemaService

	readCorrections  func(path string) ([]domain.CorrectionRecord, error)
	writeDefinitions func(w io.Writer, defs []domain.DefinitionRecord) error

	newScheduler func(every time.Duration, opts driving.RunOptions,
		onResult func(*driving.SyncReport, error)) driving.Scheduler

	// serverErr explains why the server-backed services are missing.
	serverErr error
)

var rootCmd = &cobra.Command{
	Use:   "bisync",
	Short: "Synchronise BI workbook metadata into a field dictionary",
	Long: `bisync pulls workbooks from a Tableau Server site, extracts their fields
and custom queries, and keeps a relational dictionary of field definitions,
reports and the links between them.

Only workbooks modified since the last successful sync are downloaded.
Human corrections to field definitions are merged in on every sync.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output to stderr")
}

// Services are the driving ports the commands call.
type Services struct {
	Sync        driving.SyncPipeline
	Settings    driving.SettingsService
	Definitions driving.DefinitionService
	Catalog     driving.CatalogService
	Queries     driving.QueryService
	Schema      driving.SchemaService

	// NewScheduler builds the recurring sync used by `sync --every`.
	NewScheduler func(every time.Duration, opts driving.RunOptions,
		onResult func(*driving.SyncReport, error)) driving.Scheduler

	// ReadCorrections loads a correction CSV file.
	ReadCorrections func(path string) ([]domain.CorrectionRecord, error)

	// WriteDefinitions writes definitions in the correction CSV layout.
	WriteDefinitions func(w io.Writer, defs []domain.DefinitionRecord) error

	// ServerErr is reported by commands that need the server when Sync,
	// Catalog or Queries could not be built.
	ServerErr error
}

// Configure installs the services used by the commands.
func Configure(s Services) {
	syncPipeline = s.Sync
	settingsService = s.Settings
	definitionService = s.Definitions
	catalogService = s.Catalog
	queryService = s.Queries
	schemaService = s.Schema
	newScheduler = s.NewScheduler
	readCorrections = s.ReadCorrections
	writeDefinitions = s.WriteDefinitions
	serverErr = s.ServerErr
}

// SetVersion sets the version printed by `bisync version`.
func SetVersion(v string) {
	version = v
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// notConfigured explains a missing service.
func notConfigured(what string) error {
	if serverErr != nil {
		return fmt.Errorf("%s unavailable: %w\nRun 'bisync config set server.url <url>' and 'bisync config set-token' first", what, serverErr)
	}
	return fmt.Errorf("%s service not configured", what)
}
