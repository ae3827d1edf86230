package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/arunsoman/match-magic/internal/coerce"
	"github.com/arunsoman/match-magic/internal/config"
	"github.com/arunsoman/match-magic/internal/model"
	"github.com/arunsoman/match-magic/internal/transform"
)

var (
	previewSetupPath  string
	previewPipelineID string
)

var previewCmd = &cobra.Command{
	Use:   "preview <sample-value>",
	Short: "Run a transformation pipeline on a sample value and show each step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := config.LoadSetup(previewSetupPath)
		if err != nil {
			return err
		}

		var steps []model.TransformStep
		found := false
		for _, pl := range setup.Transformations {
			if pl.ID == previewPipelineID {
				if err := transform.ValidatePipeline(pl); err != nil {
					return err
				}
				steps = pl.Steps
				found = true
				break
			}
		}
		if !found {
			return eris.Errorf("pipeline %q not found in %s", previewPipelineID, previewSetupPath)
		}

		engine := transform.NewEngine(transform.WithRates(rateTable()))
		result := engine.Preview(model.String(args[0]), steps)

		for _, sr := range result.StepResults {
			status := "ok"
			if sr.Err != "" {
				status = "failed: " + sr.Err
			}
			fmt.Printf("%-24s %-24q -> %-24q %s\n",
				sr.Kind, coerce.ToString(sr.Input), coerce.ToString(sr.Output), status)
		}
		fmt.Printf("result: %q (success=%v)\n", coerce.ToString(result.Value), result.Success)
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewSetupPath, "setup", "setup.json", "reconciliation setup document")
	previewCmd.Flags().StringVar(&previewPipelineID, "pipeline", "", "pipeline id to preview")
	_ = previewCmd.MarkFlagRequired("pipeline")
	rootCmd.AddCommand(previewCmd)
}
