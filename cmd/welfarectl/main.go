package main

import (
	"fmt"
	"os"

	"welfareBot/pkg/logger"

	"github.com/spf13/cobra"
)

// Set by build flags.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "welfarectl",
		Short: "Offline tooling for the welfare recommendation engine",
		Long: `welfarectl checks the policy, ontology and catalog resources the API
loads at startup, and replays the scoring pipeline for a set of signals
without a database, Redis or the language model.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logger.InitConsole(verbose)
		},
	}

	root.PersistentFlags().Bool("verbose", false, "log loading and scoring details to stderr")
	root.PersistentFlags().String("policy", "resources/recommendation-policy.yml", "recommendation policy file")
	root.PersistentFlags().String("ontology", "resources/signal-ontology.yml", "signal ontology file")
	root.PersistentFlags().String("catalog", "resources/benefits.json", "benefit catalog file")

	root.AddCommand(newValidateConfigCmd())
	root.AddCommand(newExplainCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resourcePaths(cmd *cobra.Command) resourceParams {
	flags := cmd.Flags()
	policyPath, _ := flags.GetString("policy")
	ontologyPath, _ := flags.GetString("ontology")
	catalogPath, _ := flags.GetString("catalog")
	return resourceParams{
		policyPath:   policyPath,
		ontologyPath: ontologyPath,
		catalogPath:  catalogPath,
	}
}
