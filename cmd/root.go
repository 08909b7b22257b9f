package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/vsdcard/internal/config"
	"github.com/zjrosen/vsdcard/internal/log"
)

var (
	version    = "dev"
	cfgFile    string
	debugFlag  bool
	logFile    string
	cfg        config.Config
	cfgPath    string
	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "vsdcard",
	Short: "A virtual SD card for G-code printers",
	Long: `vsdcard exposes a directory as a virtual SD card: it lists and selects
G-code files, streams them line by line through a command executor and
supports pause, resume, cancel and caching from removable media.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .vsdcard/config.yaml or ~/.config/vsdcard/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging (also VSDCARD_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"debug log path (default: VSDCARD_LOG or debug.log)")
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := initLogging(); err != nil {
		return err
	}
	if cmd.Annotations["skip-config"] == "true" {
		return nil
	}
	loaded, used, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	cfg, cfgPath = loaded, used
	return nil
}

// initLogging enables the file logger when debug mode is on via flag or
// env var. Logging stays off otherwise.
func initLogging() error {
	if !debugFlag && os.Getenv("VSDCARD_DEBUG") == "" {
		return nil
	}
	path := logFile
	if path == "" {
		path = os.Getenv("VSDCARD_LOG")
	}
	if path == "" {
		path = "debug.log"
	}
	cleanup, err := log.Init(path)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logCleanup = cleanup
	log.Info(log.CatConfig, "vsdcard starting", "version", version, "logPath", path)
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
