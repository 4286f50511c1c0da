package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"go-dnf-installer/internal/pkgmgr"

	"github.com/spf13/cobra"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List the repositories written to the package manager tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		dir := filepath.Join(config.PackageManagerTree, "etc/yum.repos.d")
		files, err := filepath.Glob(filepath.Join(dir, "*.repo"))
		if err != nil {
			return fmt.Errorf("failed to list repository files: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no repository files in %s, run setup first", dir)
		}

		// Create tabwriter for formatted output
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tID\tENABLED\tPRIORITY\tSOURCE\tGPG KEYS")

		for _, file := range files {
			repos, err := pkgmgr.ReadRepositories(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  Error reading %s: %v\n", file, err)
				continue
			}
			for _, repo := range repos {
				fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%s\t%s\n",
					filepath.Base(file),
					repo.ID,
					repo.Enabled,
					repo.Priority,
					repo.URL,
					strings.Join(repo.GPGURLs, ","),
				)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(reposCmd)
}
