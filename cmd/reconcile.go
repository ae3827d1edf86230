package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arunsoman/match-magic/internal/config"
	"github.com/arunsoman/match-magic/internal/fetcher"
	"github.com/arunsoman/match-magic/internal/model"
	"github.com/arunsoman/match-magic/internal/pipeline"
	"github.com/arunsoman/match-magic/internal/rates"
	"github.com/arunsoman/match-magic/internal/recon"
	"github.com/arunsoman/match-magic/internal/store"
)

var (
	reconcileSetupPath string
	reconcileOutput    string
	reconcileFormat    string
	reconcileSave      bool
	reconcileQuiet     bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <source-file> <target-file>",
	Short: "Reconcile two tabular files and emit verdicts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sourcePath, targetPath := args[0], args[1]

		setup, err := config.LoadSetup(reconcileSetupPath)
		if err != nil {
			return err
		}

		sources, err := loadInput(ctx, sourcePath)
		if err != nil {
			return err
		}
		targets, err := loadInput(ctx, targetPath)
		if err != nil {
			return err
		}

		opts := []pipeline.Option{
			pipeline.WithRates(rateTable()),
		}
		if reconcileSave || cfg.Recon.PersistRuns {
			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()
			opts = append(opts, pipeline.WithStore(st))
		}
		if !reconcileQuiet {
			opts = append(opts, pipeline.WithProgress(logProgress()))
		}

		p, err := pipeline.New(setup, opts...)
		if err != nil {
			return err
		}

		result, err := p.Run(ctx, filepath.Base(sourcePath), filepath.Base(targetPath), sources, targets)
		if err != nil {
			return err
		}

		return writeResults(result, reconcileOutput, reconcileFormat)
	},
}

// loadInput reads rows from a local file or an FTP URL staged to a temp file.
func loadInput(ctx context.Context, path string) ([]model.Row, error) {
	if strings.HasPrefix(path, "ftp://") {
		f := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			User:     cfg.FTP.User,
			Password: cfg.FTP.Password,
		})
		tmp, err := os.CreateTemp("", "matchmagic-*"+filepath.Ext(path))
		if err != nil {
			return nil, eris.Wrap(err, "create temp file")
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if _, err := f.DownloadToFile(ctx, path, tmp.Name()); err != nil {
			return nil, err
		}
		return fetcher.ReadFile(ctx, tmp.Name())
	}
	return fetcher.ReadFile(ctx, path)
}

func rateTable() rates.Table {
	table := make(rates.Table, len(cfg.Rates))
	for pair, rate := range cfg.Rates {
		table[strings.ToUpper(pair)] = rate
	}
	return table
}

func logProgress() recon.ProgressFunc {
	var lastStage string
	return func(p recon.Progress) {
		if p.Stage != lastStage {
			lastStage = p.Stage
			zap.L().Info("progress", zap.String("stage", p.Stage), zap.Float64("percent", p.Processed))
		}
	}
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileSetupPath, "setup", "setup.json", "reconciliation setup document")
	reconcileCmd.Flags().StringVarP(&reconcileOutput, "output", "o", "", "output path (default stdout)")
	reconcileCmd.Flags().StringVar(&reconcileFormat, "format", "csv", "output format: csv or json")
	reconcileCmd.Flags().BoolVar(&reconcileSave, "save", false, "persist the run to the store")
	reconcileCmd.Flags().BoolVarP(&reconcileQuiet, "quiet", "q", false, "suppress progress logging")
	rootCmd.AddCommand(reconcileCmd)
}
