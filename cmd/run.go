// cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/frostpath/gauntlet/internal/browser"
	"github.com/frostpath/gauntlet/internal/config"
	"github.com/frostpath/gauntlet/internal/driver"
	"github.com/frostpath/gauntlet/internal/observability"
	"github.com/frostpath/gauntlet/internal/probe"
	"github.com/frostpath/gauntlet/internal/reporting"
	"github.com/frostpath/gauntlet/internal/scenario"
)

const shutdownGracePeriod = 15 * time.Second

// newRunCmd creates the `run` command: execute a scenario file, optionally
// alongside a focus probe on its own isolated page.
func newRunCmd() *cobra.Command {
	var (
		reportPath string
		probePath  string
	)

	runCmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Executes a data-defined UI scenario against the target application",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			def, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			var probeDef *probe.Definition
			if probePath != "" {
				if probeDef, err = probe.Load(probePath); err != nil {
					return err
				}
			}

			mgr, err := browser.NewManager(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
				defer cancel()
				if err := mgr.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Browser shutdown failed.", zap.Error(err))
				}
			}()

			var (
				report    *scenario.Report
				probeRes  probe.Result
				group, gc = errgroup.WithContext(ctx)
			)

			group.Go(func() error {
				page, err := mgr.NewPage()
				if err != nil {
					return err
				}
				defer page.Close()

				drv := driver.New(page, cfg.Driver, logger)
				runner := scenario.NewRunner(drv, page, cfg.Driver, cfg.Artifacts.Dir, logger)
				report = runner.Run(gc, def)
				return nil
			})

			if probeDef != nil {
				group.Go(func() error {
					page, err := mgr.NewPage()
					if err != nil {
						return err
					}
					defer page.Close()

					drv := driver.New(page, cfg.Driver, logger)
					probeRes = probe.Run(gc, drv, page, cfg.Driver, probeDef, logger)
					return nil
				})
			}

			if err := group.Wait(); err != nil {
				return err
			}

			reporter, err := reporting.New(reportPath)
			if err != nil {
				return err
			}
			defer reporter.Close()
			if err := reporter.Write(report); err != nil {
				return err
			}

			if probeDef != nil && probeRes.Error != "" {
				logger.Warn("Focus probe reported a failure (non-gating).",
					zap.String("probe", probeRes.Probe),
					zap.String("error", probeRes.Error))
			}

			if report.State != scenario.StateCompleted {
				return fmt.Errorf("scenario %q aborted at step %d (%s)",
					report.Scenario, report.FailedStep, report.Category)
			}
			return nil
		},
	}

	runCmd.Flags().StringVarP(&reportPath, "report", "r", "stdout", "path for the JSON run report")
	runCmd.Flags().StringVar(&probePath, "with-probe", "", "probe definition to run concurrently on its own page")
	return runCmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
