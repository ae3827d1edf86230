package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arunsoman/match-magic/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <setup-file>",
	Short: "Validate a reconciliation setup document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := config.LoadSetup(args[0])
		if err != nil {
			return err
		}
		if err := setup.Validate(); err != nil {
			return err
		}

		fmt.Printf("%s: ok (%d mappings, %d virtual fields, %d pipelines)\n",
			args[0], len(setup.Mappings), len(setup.VirtualFields), len(setup.Transformations))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
