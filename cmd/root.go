package cmd

import (
	"fmt"
	"os"

	"go-dnf-installer/internal/pkgmgr"
	"go-dnf-installer/pkg/imageconfig"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	rootDir    string
	toolsTree  string
	debug      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "go-dnf-installer",
	Short: "Install RPM packages into an image root with dnf",
	Long: `A tool that drives dnf5, dnf or yum against an image install root. It writes the
repository configuration, refreshes metadata and runs package transactions inside a
bubblewrap sandbox.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set log level
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		if debug {
			level = log.DebugLevel
		}
		log.SetLevel(level)
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{
			DisableTimestamp: false,
			FullTimestamp:    true,
		})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file (required)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Install root, overrides the configuration file")
	rootCmd.PersistentFlags().StringVar(&toolsTree, "tools-tree", "", "Tree providing dnf and bwrap, overrides the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging for this tool and dnf")
}

// loadConfig loads the configuration file and applies command line overrides.
func loadConfig() (*imageconfig.Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("--config is required")
	}

	config, err := imageconfig.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if rootDir != "" {
		config.Root = rootDir
	}
	if toolsTree != "" {
		config.ToolsTree = toolsTree
	}
	if debug {
		config.Debug = true
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log.Debugf("Loaded configuration from %s", configFile)
	return config, nil
}

// newPackageManager is replaced in tests.
var newPackageManager = func() *pkgmgr.DNF {
	return pkgmgr.NewDNF()
}
