package cmd

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [-- OPTIONS...]",
	Short: "Refresh repository metadata",
	Long: `Run makecache with a forced refresh. Arguments after -- are passed on to
makecache, for example to restrict the refresh to some repositories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		return newPackageManager().Sync(cmd.Context(), config, args...)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
