package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/logger"
)

// watchDebounce collapses bursts of writes from editors into one apply.
var watchDebounce = 500 * time.Millisecond

var definitionsCmd = &cobra.Command{
	Use:     "definitions",
	Aliases: []string{"defs"},
	Short:   "Manage field definitions",
}

var definitionsApplyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Apply a corrections CSV to stored definitions",
	Long: `Reads a corrections CSV and updates matching stored definitions.
Non-empty cells replace the stored value; empty cells leave it as it is.
Names with no stored definition are listed and otherwise ignored; they
are created by the next sync that sees the field.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if definitionService == nil || readCorrections == nil {
			return notConfigured("definitions")
		}
		return applyCorrections(cmd, args[0])
	},
}

var definitionsExportCmd = &cobra.Command{
	Use:   "export FILE|-",
	Short: "Write stored definitions as a corrections CSV",
	Long: `Writes every stored definition in the corrections CSV layout, so the
file can be edited and fed back with 'bisync definitions apply'.
Use - to write to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runDefinitionsExport,
}

var definitionsWatchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Apply a corrections CSV every time it changes",
	Long: `Applies the corrections CSV once, then again after every save until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runDefinitionsWatch,
}

func init() {
	definitionsCmd.AddCommand(definitionsApplyCmd, definitionsExportCmd, definitionsWatchCmd)
	rootCmd.AddCommand(definitionsCmd)
}

func applyCorrections(cmd *cobra.Command, path string) error {
	corrections, err := readCorrections(path)
	if err != nil {
		return fmt.Errorf("read corrections: %w", err)
	}

	result, err := definitionService.Apply(cmd.Context(), corrections)
	if result != nil {
		printApplyResult(cmd, path, len(corrections), result)
	}
	return err
}

func printApplyResult(cmd *cobra.Command, path string, rows int, r *driving.ApplyResult) {
	cmd.Println(titleStyle.Render(filepath.Base(path)))
	cmd.Println(line("Rows", "%d", rows))
	cmd.Println(line("Matched", "%d", r.Matched))
	cmd.Println(line("Updated", "%d", r.Updated))
	if len(r.Unknown) > 0 {
		cmd.Println(line("Unknown", "%d", len(r.Unknown)))
		cmd.Println(mutedStyle.Render("    " + strings.Join(r.Unknown, ", ")))
	}
}

func runDefinitionsExport(cmd *cobra.Command, args []string) (err error) {
	if definitionService == nil || writeDefinitions == nil {
		return notConfigured("definitions")
	}

	defs, err := definitionService.List(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if err := writeDefinitions(w, defs); err != nil {
		return fmt.Errorf("write definitions: %w", err)
	}
	if args[0] != "-" {
		cmd.Printf("Exported %d definitions to %s\n", len(defs), args[0])
	}
	return nil
}

func runDefinitionsWatch(cmd *cobra.Command, args []string) error {
	if definitionService == nil || readCorrections == nil {
		return notConfigured("definitions")
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often save by rename, so the directory is watched rather than the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	apply := func() {
		if err := applyCorrections(cmd, path); err != nil {
			cmd.PrintErrln(errorStyle.Render(err.Error()))
		}
	}
	apply()
	cmd.Println(mutedStyle.Render(fmt.Sprintf("Watching %s (Ctrl+C to stop)", path)))

	return watchFile(cmd.Context(), watcher, path, apply)
}

// watchFile calls apply once per burst of changes to path until ctx ends.
func watchFile(ctx context.Context, watcher *fsnotify.Watcher, path string, apply func()) error {
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("%s: %s", event.Op, event.Name)
			timer.Reset(watchDebounce)

		case <-timer.C:
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				logger.Warn("%s is missing, waiting for it to reappear", path)
				continue
			}
			apply()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}
