package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [collection...]",
	Short: "Summarise the server catalog",
	Long: `Fetches the named collections (all of them when none are given) and
prints how many items each holds. A collection that fails to load is
reported in its row and does not stop the others.`,
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return notConfigured("catalog")
	}

	catalog := catalogService.Fetch(cmd.Context(), args...)

	t := newTable("COLLECTION", "ITEMS", "TOTAL", "STATUS")
	failed := 0
	for _, name := range catalog.Names() {
		col := catalog.Get(name)
		status := successStyle.Render("ok")
		switch {
		case col.Err != nil:
			status = errorStyle.Render(col.Err.Error())
			failed++
		case col.Failed() > 0:
			status = warningStyle.Render(fmt.Sprintf("%d incomplete", col.Failed()))
		}
		t.Row(name, strconv.Itoa(len(col.Items)), strconv.Itoa(col.Total), status)
	}
	cmd.Println(t.Render())
	cmd.Println(mutedStyle.Render(fmt.Sprintf("fetched %s", catalog.FetchedAt.Format("2006-01-02 15:04:05"))))

	if failed == len(catalog.Collections) && failed > 0 {
		return fmt.Errorf("catalog fetch failed: %w", catalog.Err())
	}
	return nil
}
