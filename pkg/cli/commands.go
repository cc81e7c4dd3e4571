package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			list, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return writePluginTable(cmd.OutOrStdout(), list)
		},
	}
}

func newShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plugin-name>",
		Short: "Show a plugin's details and saved config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			detail, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), detail)
			}
			return writePluginDetail(cmd.OutOrStdout(), detail)
		},
	}
}

func newConfigCommand(opts *options) *cobra.Command {
	var file string
	var sets []string

	cmd := &cobra.Command{
		Use:   "config <plugin-name>",
		Short: "Save plugin configuration",
		Long: `Save the configuration of a plugin.

With --file the file's JSON object replaces the saved config. Without it,
--set values are applied on top of the currently saved config. Values are
parsed as JSON when possible and kept as strings otherwise.

Examples:
  hangarctl config chat --file ./chat.json
  hangarctl config chat --set theme=dark --set maxRooms=10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(sets) == 0 {
				return fmt.Errorf("one of --file or --set is required")
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			var config map[string]any
			if file != "" {
				config, err = readConfigFile(file)
				if err != nil {
					return err
				}
			} else {
				detail, err := c.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				config = detail.Config
			}
			if config == nil {
				config = map[string]any{}
			}
			if err := applySets(config, sets); err != nil {
				return err
			}

			msg, err := c.SaveConfig(cmd.Context(), args[0], config)
			if err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), opts.output, msg)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file holding the config object")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a config key (key=value), repeatable")

	return cmd
}

func newEnableCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <plugin-name>",
		Short: "Enable an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			msg, err := c.Enable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), opts.output, msg)
		},
	}
}

func newDisableCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <plugin-name>",
		Short: "Disable an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			msg, err := c.Disable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), opts.output, msg)
		},
	}
}

func newInstallCommand(opts *options) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "install <plugin-name>",
		Short: "Install a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			msg, err := c.Install(cmd.Context(), args[0], source)
			if err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), opts.output, msg)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Where the plugin was installed from")

	return cmd
}

func newUninstallCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <plugin-name>",
		Short: "Uninstall a plugin, keeping its saved config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			msg, err := c.Uninstall(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeMessage(cmd.OutOrStdout(), opts.output, msg)
		},
	}
}

func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("config file must hold a JSON object: %w", err)
	}
	return config, nil
}

// applySets applies key=value pairs to config
func applySets(config map[string]any, sets []string) error {
	for _, kv := range sets {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --set %q, want key=value", kv)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		config[key] = value
	}
	return nil
}
