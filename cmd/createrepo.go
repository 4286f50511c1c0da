package cmd

import (
	"github.com/spf13/cobra"
)

var createrepoCmd = &cobra.Command{
	Use:   "createrepo",
	Short: "Index packages_dir and make it available as the mkosi repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		return newPackageManager().CreateRepo(cmd.Context(), config)
	},
}

func init() {
	rootCmd.AddCommand(createrepoCmd)
}
