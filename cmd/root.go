package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var specFile string
var monitorAddr string
var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stoker",
	Short: "MCMC chain execution engine",
	Long: `stoker drives MCMC chains against continuous targets.
Among other features:

  - Random-walk Metropolis, slice, MALA (plain and simplified manifold),
    HMC, and trajectory-doubling (NUTS-style) samplers
  - Window-based acceptance-rate tuning with burn-in freeze
  - In-memory or streaming (JSON lines) output
  - Independent chains run in parallel, each reproducible by seed
`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the chains described by a YAML run spec",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := log.New(os.Stdout, "", 0)
		return RunSampling(specFile, monitorAddr, out)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")

	runCmd.Flags().StringVarP(&specFile, "spec", "s", "", "YAML run spec file")
	runCmd.Flags().StringVarP(&monitorAddr, "monitor", "m", "", "Address for the expvar progress monitor (empty disables)")
	runCmd.MarkFlagRequired("spec")

	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
