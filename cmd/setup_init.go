package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arunsoman/match-magic/internal/config"
	"github.com/arunsoman/match-magic/internal/model"
)

var initSetupCmd = &cobra.Command{
	Use:   "init-setup <path>",
	Short: "Write a starter reconciliation setup document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup := &config.Setup{
			Version: config.SetupVersion,
			Mappings: []model.ColumnMapping{
				{ID: "amount", Source: []string{"Amount"}, Target: "Amount", Match: model.MatchExact},
				{ID: "date", Source: []string{"Date"}, Target: "Date", Match: model.MatchExact},
			},
			Transformations: []model.Pipeline{
				{
					ID: "clean-amount", Side: model.SideSource, ColumnID: "Amount",
					Steps: []model.TransformStep{
						{ID: "s1", Kind: model.StepCastToNumber, Order: 1},
					},
				},
			},
			SortConfiguration: model.ReconcileConfig{
				SourceSortKey: "Date",
				TargetSortKey: "Date",
				Tolerance:     0,
				ToleranceUnit: model.UnitExact,
				ChunkSize:     model.DefaultChunkSize,
				MatchStrategy: model.StrategySmart,
			},
		}
		if err := setup.Save(args[0]); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initSetupCmd)
}
