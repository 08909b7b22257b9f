package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vsdcard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), configTarget())
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE...",
	Short: "Set a configuration value, keeping comments",
	Long: `Set a dotted configuration key. More than one value, or a key ending in
_axes, is written as a list.

Examples:
  vsdcard config set sdcard.path /mnt/usb
  vsdcard config set flags.removable-detect false
  vsdcard config set pause.excluded_axes extruder extruder1`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, values := args[0], args[1:]
		path := configTarget()
		var err error
		if len(values) > 1 || strings.HasSuffix(key, "_axes") {
			err = config.SaveList(path, key, values)
		} else {
			err = config.SaveValue(path, key, values[0])
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s in %s\n", key, path)
		return err
	},
}

func configTarget() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.LocalConfigPath
}

func init() {
	configCmd.AddCommand(configPathCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
