package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var noFilelists bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write dnf.conf and the repository file",
	Long: `Write dnf.conf and mkosi.repo into the package manager tree. Files that already
exist are left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		if err := newPackageManager().Setup(config, config.Repositories, !noFilelists); err != nil {
			return fmt.Errorf("failed to set up package manager: %w", err)
		}
		return nil
	},
}

func init() {
	setupCmd.Flags().BoolVar(&noFilelists, "no-filelists", false, "Do not request filelists metadata")
	rootCmd.AddCommand(setupCmd)
}
