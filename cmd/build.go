package cmd

import (
	"fmt"
	"os"

	"go-dnf-installer/pkg/builder"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Install the configured packages into the install root",
	Long: `Set up the repositories, refresh metadata, install the configured packages and
remove the ones listed under remove_packages. Packages found in packages_dir are made
available through a local repository first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check for the avialability of user namespaces if invoked as non-root
		if os.Getuid() != 0 {
			if _, err := os.Stat("/proc/sys/user/max_user_namespaces"); os.IsNotExist(err) {
				log.Warn("User namespaces are not supported by this kernel. Please enable them in your kernel configuration.")
				return fmt.Errorf("user namespaces are not supported by this kernel")
			}
		}

		config, err := loadConfig()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(config.Root, 0755); err != nil {
			return fmt.Errorf("failed to create install root: %w", err)
		}

		b := builder.NewBuilder(config, newPackageManager())
		if err := b.Build(cmd.Context()); err != nil {
			return fmt.Errorf("failed to install packages: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
