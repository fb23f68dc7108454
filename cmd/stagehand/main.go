package main

import (
	"fmt"
	"os"

	"stagehand/internal/config"
	"stagehand/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	settingsPath string
	manifestPath string
	startPhase   string
	skipIntro    bool

	// Resolved by PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stagehand",
	Short: "stagehand - application lifecycle controller",
	Long: `stagehand drives an interactive application through its phases:
splash, main menu, loading, in-game, paused and error.

Phase changes are hidden behind a fade, asset bundles load in the
background while a progress bar fills, and settings edited from the menu
or pause overlay are applied at once and saved shortly after.

Run without arguments to start the interactive terminal front end.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg = zap.NewDevelopmentConfig()
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}

		switch {
		case cfg.Logging.DebugMode:
			if err := logging.Initialize(cfg.LoggingOptions()); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
		case verbose:
			logging.SetBase(logger, cfg.Logging.Categories)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

// loadConfig reads the config file and lays explicit flags over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("settings") {
		c.Paths.Settings = settingsPath
	}
	if flags.Changed("manifest") {
		c.Paths.Manifest = manifestPath
	}
	if flags.Changed("start-phase") {
		c.Boot.StartPhase = startPhase
	}
	if flags.Changed("skip-intro") {
		c.Boot.SkipIntro = skipIntro
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Debug("configuration loaded",
		zap.String("config", configPath),
		zap.String("settings", c.Paths.Settings),
		zap.String("manifest", c.Paths.Manifest))
	return c, nil
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVarP(&configPath, "config", "c", ".stagehand/config.yaml", "Config file")
	pf.StringVar(&settingsPath, "settings", "", "Settings file (overrides paths.settings)")
	pf.StringVar(&manifestPath, "manifest", "", "Asset manifest (overrides paths.manifest)")
	pf.StringVar(&startPhase, "start-phase", "", "Phase to boot into, for development")
	pf.BoolVar(&skipIntro, "skip-intro", false, "Boot straight to the main menu")

	// Run flags
	runCmd.Flags().BoolVar(&headless, "headless", false, "Drive the runtime without a terminal UI")
	runCmd.Flags().IntVar(&maxTicks, "ticks", 0, "Stop a headless run after this many frames (0 = until exit)")
	runCmd.Flags().StringVar(&startBundle, "bundle", "", "Bundle loaded when booting into Loading or InGame")

	// Settings subcommands
	settingsShowCmd.Flags().BoolVar(&showYAML, "yaml", false, "Print the settings file as stored")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.AddCommand(settingsPathCmd)

	// Manifest subcommands
	manifestCheckCmd.Flags().BoolVar(&fetchAssets, "fetch", false, "Read every asset from the assets root")
	manifestCmd.AddCommand(manifestCheckCmd)

	// Add commands to root
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
