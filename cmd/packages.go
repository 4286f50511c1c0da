package cmd

import (
	"fmt"
	"text/tabwriter"

	"go-dnf-installer/pkg/localrepo"

	"github.com/spf13/cobra"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List the RPMs in packages_dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		if config.PackagesDir == "" {
			return fmt.Errorf("packages_dir is not configured")
		}

		packages, err := localrepo.ListPackages(config.PackagesDir)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tEPOCH\tVERSION\tRELEASE\tARCH\tFILE")
		for _, pkg := range packages {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", pkg.Name, pkg.Epoch, pkg.Version, pkg.Release, pkg.Arch, pkg.Filename)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(packagesCmd)
}
