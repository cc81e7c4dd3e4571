package cli

import (
	"fmt"
	"os"

	"github.com/platinummonkey/hangar/pkg/client"
	"github.com/spf13/cobra"
)

const (
	defaultServer = "http://localhost:8080"

	outputTable = "table"
	outputJSON  = "json"
)

// options are the persistent flags shared by every subcommand
type options struct {
	server string
	secret string
	output string
}

func (o *options) client() (*client.Client, error) {
	if o.secret == "" {
		return nil, fmt.Errorf("shared secret is required (--secret or HANGAR_SHARED_SECRET)")
	}
	return client.New(o.server, []byte(o.secret))
}

func (o *options) validate() error {
	switch o.output {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want table or json)", o.output)
	}
}

// NewRootCommand creates the hangarctl root command
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "hangarctl",
		Short: "Manage plugins on a Hangar host",
		Long: `hangarctl manages the plugins of a running Hangar host over the signed
control protocol: list and inspect plugins, save their configuration and
enable, disable, install or uninstall them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("HANGAR_SERVER", defaultServer), "Host URL")
	root.PersistentFlags().StringVar(&opts.secret, "secret", os.Getenv("HANGAR_SHARED_SECRET"), "Shared signing secret")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or json")

	root.AddCommand(
		newListCommand(opts),
		newShowCommand(opts),
		newConfigCommand(opts),
		newEnableCommand(opts),
		newDisableCommand(opts),
		newInstallCommand(opts),
		newUninstallCommand(opts),
	)

	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
