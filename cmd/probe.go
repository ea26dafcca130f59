// cmd/probe.go
package cmd

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/frostpath/gauntlet/internal/browser"
	"github.com/frostpath/gauntlet/internal/config"
	"github.com/frostpath/gauntlet/internal/driver"
	"github.com/frostpath/gauntlet/internal/observability"
	"github.com/frostpath/gauntlet/internal/probe"
)

// newProbeCmd creates the `probe` command: a best-effort focus-state check.
// It reports failures on stdout but exits zero; the probe is a diagnostic
// utility, not a pass/fail gate.
func newProbeCmd() *cobra.Command {
	probeCmd := &cobra.Command{
		Use:   "probe <probe.yaml>",
		Short: "Runs the focus-state verification probe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			def, err := probe.Load(args[0])
			if err != nil {
				return err
			}

			res := runProbe(ctx, cfg, def, logger)

			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(res)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	return probeCmd
}

// runProbe launches a browser and executes the probe, converting every
// failure, including browser launch, into a Result diagnostic.
func runProbe(ctx context.Context, cfg *config.Config, def *probe.Definition, logger *zap.Logger) probe.Result {
	mgr, err := browser.NewManager(ctx, cfg.Browser, logger)
	if err != nil {
		return probe.Result{Probe: def.Name, Error: fmt.Sprintf("browser launch failed: %v", err)}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := mgr.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown failed.", zap.Error(err))
		}
	}()

	page, err := mgr.NewPage()
	if err != nil {
		return probe.Result{Probe: def.Name, Error: fmt.Sprintf("page open failed: %v", err)}
	}
	defer page.Close()

	drv := driver.New(page, cfg.Driver, logger)
	return probe.Run(ctx, drv, page, cfg.Driver, def, logger)
}

func init() {
	rootCmd.AddCommand(newProbeCmd())
}
