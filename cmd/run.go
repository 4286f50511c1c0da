package cmd

import (
	"os"

	"go-dnf-installer/internal/pkgmgr"

	"github.com/spf13/cobra"
)

var apivfs bool

var runCmd = &cobra.Command{
	Use:   "run OPERATION [ARGS...]",
	Short: "Run a dnf operation against the install root",
	Long: `Run dnf OPERATION ARGS... in the sandbox with the configured install root. The
command's standard output is passed through, which makes queries such as repoquery
usable from scripts.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		opts := pkgmgr.InvokeOptions{APIVFS: apivfs, Stdout: os.Stdout}
		_, err = newPackageManager().Invoke(cmd.Context(), config, args[0], args[1:], opts)
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&apivfs, "apivfs", false, "Mount /proc, /dev and /run inside the install root")
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}
