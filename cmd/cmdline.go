package cmd

import (
	"fmt"
	"sort"
	"strings"

	"go-dnf-installer/internal/pkgmgr"

	"github.com/spf13/cobra"
)

var showScripts bool

var cmdlineCmd = &cobra.Command{
	Use:   "cmdline",
	Short: "Print the dnf command line used for every operation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		pm := newPackageManager()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s (cache subdirectory %s)\n", pkgmgr.Executable(config), pkgmgr.Subdir(config))
		fmt.Fprintln(out, strings.Join(pm.Cmd(config), " "))

		if !showScripts {
			return nil
		}

		scripts := pm.Scripts(config)
		names := make([]string, 0, len(scripts))
		for name := range scripts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%s: %s\n", name, strings.Join(scripts[name], " "))
		}
		return nil
	},
}

func init() {
	cmdlineCmd.Flags().BoolVar(&showScripts, "scripts", false, "Also print the helper script command lines")
	rootCmd.AddCommand(cmdlineCmd)
}
