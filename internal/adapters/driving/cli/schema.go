package cli

import (
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the metadata tables",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the metadata tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if schemaService == nil {
			return notConfigured("schema")
		}
		if err := schemaService.Create(cmd.Context()); err != nil {
			return err
		}
		cmd.Println(successStyle.Render("Schema created"))
		return nil
	},
}

var schemaDropForce bool

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the metadata tables and every stored definition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if schemaService == nil {
			return notConfigured("schema")
		}
		if !schemaDropForce {
			cmd.Println("This deletes every definition, report and link.")
			cmd.Println("Re-run with --force to continue.")
			return nil
		}
		if err := schemaService.Drop(cmd.Context()); err != nil {
			return err
		}
		cmd.Println(warningStyle.Render("Schema dropped"))
		return nil
	},
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report row counts of the metadata tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if schemaService == nil {
			return notConfigured("schema")
		}
		counts, err := schemaService.Check(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Println(titleStyle.Render("Metadata tables"))
		cmd.Println(line("Fields", "%d", counts.Fields))
		cmd.Println(line("Reports", "%d", counts.Reports))
		cmd.Println(line("Links", "%d", counts.Bridge))
		return nil
	},
}

func init() {
	schemaDropCmd.Flags().BoolVar(&schemaDropForce, "force", false, "confirm dropping the tables")
	schemaCmd.AddCommand(schemaCreateCmd, schemaDropCmd, schemaCheckCmd)
	rootCmd.AddCommand(schemaCmd)
}
