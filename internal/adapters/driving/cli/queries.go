package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Work with the custom SQL of cached workbooks",
}

var queriesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the custom query of every cached workbook to the query archive",
	Args:  cobra.NoArgs,
	RunE:  runQueriesExport,
}

var (
	replaceOut     string
	replacePublish bool
	replaceMode    string
	addWorkbook    string
)

var queriesReplaceCmd = &cobra.Command{
	Use:   "replace OLD NEW",
	Short: "Rewrite query text in cached workbooks",
	Long: `Replaces every occurrence of OLD with NEW inside the custom SQL of each
cached workbook and writes the changed workbooks to --out, one directory
per workbook id. Workbooks without OLD are not written. With --publish the rewritten workbooks are
uploaded to the configured publish project.`,
	Args: cobra.ExactArgs(2),
	RunE: runQueriesReplace,
}

var queriesAddColumnCmd = &cobra.Command{
	Use:   "add-column COLUMN",
	Short: "Add a select item to cached workbook queries",
	Long: `Inserts COLUMN into the select list of each cached workbook's custom SQL,
directly before the first FROM, and writes the changed workbooks to --out.
--workbook limits the edit to workbooks whose name contains the given text.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueriesAddColumn,
}

func init() {
	queriesAddColumnCmd.Flags().StringVarP(&replaceOut, "out", "o", "rewritten", "directory for edited workbooks")
	queriesAddColumnCmd.Flags().BoolVar(&replacePublish, "publish", false, "upload the edited workbooks")
	queriesAddColumnCmd.Flags().StringVar(&replaceMode, "mode", string(domain.PublishOverwrite),
		"publish mode: Overwrite, CreateNew or Append")
	queriesAddColumnCmd.Flags().StringVarP(&addWorkbook, "workbook", "w", "", "only edit workbooks whose name contains this")

	queriesReplaceCmd.Flags().StringVarP(&replaceOut, "out", "o", "rewritten", "directory for rewritten workbooks")
	queriesReplaceCmd.Flags().BoolVar(&replacePublish, "publish", false, "upload the rewritten workbooks")
	queriesReplaceCmd.Flags().StringVar(&replaceMode, "mode", string(domain.PublishOverwrite),
		"publish mode: Overwrite, CreateNew or Append")
	queriesCmd.AddCommand(queriesExportCmd, queriesReplaceCmd, queriesAddColumnCmd)
	rootCmd.AddCommand(queriesCmd)
}

func runQueriesExport(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return notConfigured("queries")
	}

	out, err := queryService.Export(cmd.Context())
	if out != nil {
		names := make([]string, 0, len(out.Written))
		for name := range out.Written {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cmd.Println(line(name, "%s", out.Written[name]))
		}
		cmd.Printf("Exported %d queries, %d workbooks without one\n", len(out.Written), out.Empty)
		for _, a := range out.Anomalies {
			cmd.Println(warningStyle.Render("  " + a.Error()))
		}
	}
	return err
}

func runQueriesReplace(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return notConfigured("queries")
	}

	mode, err := publishMode()
	if err != nil {
		return err
	}

	result, err := queryService.Replace(cmd.Context(), driving.ReplaceRequest{
		Old:       args[0],
		New:       args[1],
		OutputDir: replaceOut,
		Publish:   replacePublish,
		Mode:      mode,
	})
	printEdits(cmd, result)
	return err
}

func runQueriesAddColumn(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return notConfigured("queries")
	}

	mode, err := publishMode()
	if err != nil {
		return err
	}

	result, err := queryService.AddColumn(cmd.Context(), driving.AddColumnRequest{
		Column:    args[0],
		Workbook:  addWorkbook,
		OutputDir: replaceOut,
		Publish:   replacePublish,
		Mode:      mode,
	})
	printEdits(cmd, result)
	return err
}

func publishMode() (domain.PublishMode, error) {
	mode := domain.PublishMode(replaceMode)
	if !mode.IsValid() {
		return "", fmt.Errorf("%w: --mode must be Overwrite, CreateNew or Append", domain.ErrInvalidInput)
	}
	return mode, nil
}

func printEdits(cmd *cobra.Command, result *driving.ReplaceResult) {
	if result == nil {
		return
	}
	for _, path := range result.Rewritten {
		cmd.Println("  " + path)
	}
	cmd.Printf("Rewrote %d workbooks\n", len(result.Rewritten))

	if replacePublish {
		failed := domain.FailedCount(result.Published)
		cmd.Printf("Published %d, %d failed\n", len(result.Published)-failed, failed)
		for _, p := range result.Published {
			if !p.Ok() {
				cmd.Println(errorStyle.Render(fmt.Sprintf("  %s: %v", p.ID, p.Err)))
			}
		}
	}
}
