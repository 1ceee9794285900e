package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting",
	Long: `Changes one setting. Known keys:

  server.url, server.site, server.api_version, server.token_name,
  server.token_secret, server.publish_project_id,
  server.requests_per_second, server.page_size,
  sync.workers, sync.default_project,
  paths.data_dir, paths.workbooks_dir, paths.snapshot_file,
  paths.database_file, paths.corrections_file, paths.queries_dir`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settingsService == nil {
			return notConfigured("settings")
		}
		if err := settingsService.Set(args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("%s updated\n", args[0])
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Restore one setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settingsService == nil {
			return notConfigured("settings")
		}
		if err := settingsService.Unset(args[0]); err != nil {
			return err
		}
		cmd.Printf("%s reset to default\n", args[0])
		return nil
	},
}

var tokenName string

// Settings keys written by set-token.
//
//nolint:gosec // G101: config key names, not credentials.
const (
	keyTokenName   = "server.token_name"
	keyTokenSecret = "server.token_secret"
)

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store the personal access token used to sign in",
	Long: `Prompts for the personal access token secret without echoing it.
The secret can also be supplied through BISYNC_TOKEN_SECRET instead of
being stored.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetToken,
}

func init() {
	configSetTokenCmd.Flags().StringVar(&tokenName, "name", "", "token name (prompted when empty)")
	configCmd.AddCommand(configListCmd, configSetCmd, configUnsetCmd, configSetTokenCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	// Invalid settings are still shown so they can be fixed.
	s, err := settingsService.Get()
	if s == nil {
		return err
	}

	cmd.Println(titleStyle.Render("Server"))
	cmd.Println(line("URL", "%s", orNone(s.Server.URL)))
	cmd.Println(line("Site", "%s", orNone(s.Server.Site)))
	cmd.Println(line("API version", "%s", s.Server.APIVersion))
	cmd.Println(line("Token name", "%s", orNone(s.Server.TokenName)))
	cmd.Println(line("Token secret", "%s", maskSecret(s.Server.TokenSecret)))
	cmd.Println(line("Publish to", "%s", orNone(s.Server.PublishProjectID)))
	cmd.Println(line("Rate", "%g req/s", s.Server.RequestsPerSecond))
	cmd.Println(line("Page size", "%d", s.Server.PageSize))
	cmd.Println()

	cmd.Println(titleStyle.Render("Sync"))
	cmd.Println(line("Workers", "%d", s.Sync.Workers))
	cmd.Println(line("Project", "%s", s.Sync.DefaultProject))
	cmd.Println()

	cmd.Println(titleStyle.Render("Paths"))
	cmd.Println(line("Data", "%s", s.Paths.DataDir))
	cmd.Println(line("Workbooks", "%s", s.Paths.WorkbooksDir))
	cmd.Println(line("Snapshot", "%s", s.Paths.SnapshotFile))
	cmd.Println(line("Database", "%s", s.Paths.DatabaseFile))
	cmd.Println(line("Corrections", "%s", orNone(s.Paths.CorrectionsFile)))
	cmd.Println(line("Queries", "%s", orNone(s.Paths.QueriesDir)))

	if err != nil {
		cmd.Println()
		cmd.Println(errorStyle.Render(err.Error()))
	}
	if !s.Server.IsConfigured() {
		cmd.Println()
		cmd.Println(mutedStyle.Render("Server not configured: set server.url and run 'bisync config set-token'"))
	}
	return nil
}

func runConfigSetToken(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	in := bufio.NewReader(cmd.InOrStdin())
	name := strings.TrimSpace(tokenName)
	if name == "" {
		cmd.Print("Token name: ")
		name = readLine(in)
	}
	if name == "" {
		return fmt.Errorf("%w: token name is empty", domain.ErrInvalidInput)
	}

	cmd.Print("Token secret: ")
	secret := readSecret(cmd.InOrStdin(), in)
	cmd.Println()
	if secret == "" {
		return fmt.Errorf("%w: token secret is empty", domain.ErrInvalidInput)
	}

	if err := settingsService.Set(keyTokenName, name); err != nil {
		return err
	}
	if err := settingsService.Set(keyTokenSecret, secret); err != nil {
		return err
	}
	cmd.Printf("Token %s saved (%s)\n", name, maskSecret(secret))
	return nil
}

func readLine(r *bufio.Reader) string {
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}

// readSecret reads without echo when in is a terminal.
func readSecret(in io.Reader, buffered *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return readLine(buffered)
}
