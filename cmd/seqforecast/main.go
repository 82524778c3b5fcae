package main

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	seqforecaster "github.com/aouyang1/go-seqforecaster"
	"github.com/aouyang1/go-seqforecaster/internal/config"
	"github.com/aouyang1/go-seqforecaster/timedataset"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
	dataPath   string
	reportPath string
	plotPath   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seqforecast",
		Short: "Train a sequence model on a univariate time series and forecast it",
		Long: `Windows the most recent samples of a series into training examples, fits a
simple recurrent, LSTM or linear model to predict one step ahead and rolls the
model forward over the held out test suffix.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (YAML), defaults to ./seqforecast.yaml when present")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging including per epoch training loss")
	rootCmd.PersistentFlags().StringVar(&reportPath, "report", "", "Write a JSON report to this path")
	rootCmd.PersistentFlags().StringVar(&plotPath, "plot", "", "Write an HTML plot of the fit and forecast to this path")

	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(backtestCmd())
	rootCmd.AddCommand(demoCmd())
	return rootCmd
}

// report is the JSON document written by every command
type report struct {
	Summary  *seqforecaster.Summary   `json:"summary"`
	Forecast *seqforecaster.Results   `json:"forecast"`
	Backtest []*seqforecaster.Results `json:"backtest,omitempty"`
}

// trainCmd fits on a csv series and forecasts the test suffix
func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a model on a CSV series and forecast its held out suffix",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			td, err := loadData(cfg)
			if err != nil {
				return err
			}
			f, err := fit(cfg, td)
			if err != nil {
				return err
			}
			return finish(cfg, f, nil)
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "CSV file to train on, overrides data.path")
	return cmd
}

// backtestCmd fits on a csv series and forecasts from every origin of the test suffix
func backtestCmd() *cobra.Command {
	var origins []int
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Fit a model on a CSV series and forecast from several origins of its held out suffix",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			td, err := loadData(cfg)
			if err != nil {
				return err
			}
			f, err := fit(cfg, td)
			if err != nil {
				return err
			}

			res, err := f.Backtest(cmd.Context(), origins)
			if err != nil {
				return err
			}
			for i, r := range res {
				if r.Scores == nil {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), backtestLine(originAt(origins, i), r))
			}
			return finish(cfg, f, res)
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "CSV file to train on, overrides data.path")
	cmd.Flags().IntSliceVar(&origins, "origins", nil, "Seed offsets into the test suffix, defaults to all")
	return cmd
}

// originAt returns the seed offset of the i-th backtest result. A nil origins evaluates
// every offset in order.
func originAt(origins []int, i int) int {
	if origins == nil {
		return i
	}
	return origins[i]
}

func backtestLine(origin int, r *seqforecaster.Results) string {
	return fmt.Sprintf("origin %d    forecast start %s    RMSE: %.3f    MAPE: %.3f",
		origin, r.T[0].Format(time.RFC3339), r.Scores.RMSE, r.Scores.MAPE)
}

// demoCmd fits on a synthetic hourly series with a daily cycle, noise and a sensor outage
func demoCmd() *cobra.Command {
	var days int
	var seed uint64
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Fit a model on a synthetic hourly series",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			td, err := demoData(days, seed)
			if err != nil {
				return err
			}
			f, err := fit(cfg, td)
			if err != nil {
				return err
			}
			return finish(cfg, f, nil)
		},
	}
	cmd.Flags().IntVar(&days, "days", 35, "Number of days of hourly samples to generate")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Noise seed")
	return cmd
}

// setup loads the configuration and installs the logger
func setup() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if dataPath != "" {
		cfg.Data.Path = dataPath
	}
	if reportPath != "" {
		cfg.Output.Report = reportPath
	}
	if plotPath != "" {
		cfg.Output.Plot = plotPath
	}
	return cfg, nil
}

func loadData(cfg *config.Config) (*timedataset.TimeDataset, error) {
	if cfg.Data.Path == "" {
		return nil, fmt.Errorf("no data path, set --data or data.path")
	}
	opt, err := cfg.Data.CSVOptions()
	if err != nil {
		return nil, err
	}

	file, err := os.Open(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data: %w", err)
	}
	defer file.Close()

	td, err := timedataset.LoadCSV(file, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfg.Data.Path, err)
	}
	slog.Info("loaded series", "path", cfg.Data.Path, "samples", td.Len(), "missing", td.Missing())
	return td, nil
}

func demoData(days int, seed uint64) (*timedataset.TimeDataset, error) {
	n := days * 24
	t := timedataset.GenerateT(n, time.Hour, time.Now)
	rng := rand.New(rand.NewPCG(seed, seed+1))

	period := 86400.0
	y := timedataset.GenerateConstY(n, 20.0).
		Add(timedataset.GenerateTrend(t, 0, 0.01)).
		Add(timedataset.GenerateWaveY(t, 5.0, period, 1.0, 6*60*60)).
		Add(timedataset.GenerateWaveY(t, 1.5, period, 2.0, 0)).
		Add(timedataset.GenerateNoise(t, rng, 0.5, 0.2, period, 1.0, 0))
	if n > 2 {
		y.SetConst(t, math.NaN(), t[n/3], t[n/3+min(6, n/3)])
	}
	return timedataset.NewUnivariateDataset(t, y)
}

func fit(cfg *config.Config, td *timedataset.TimeDataset) (*seqforecaster.Forecaster, error) {
	f, err := seqforecaster.New(&cfg.Forecaster)
	if err != nil {
		return nil, err
	}
	if err := f.Fit(td.T, td.Y); err != nil {
		return nil, err
	}
	return f, nil
}

// finish prints the summary and writes the optional report and plot
func finish(cfg *config.Config, f *seqforecaster.Forecaster, backtest []*seqforecaster.Results) error {
	s, err := f.Summary()
	if err != nil {
		return err
	}
	if err := s.TablePrint(os.Stdout, "", "  "); err != nil {
		return err
	}

	if cfg.Output.Report != "" {
		res, err := f.Forecast()
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(report{Summary: s, Forecast: res, Backtest: backtest}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := os.WriteFile(cfg.Output.Report, b, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		slog.Info("wrote report", "path", cfg.Output.Report)
	}

	if cfg.Output.Plot != "" {
		if err := f.PlotFit(cfg.Output.Plot); err != nil {
			return fmt.Errorf("failed to plot: %w", err)
		}
		slog.Info("wrote plot", "path", cfg.Output.Plot)
	}
	return nil
}
