package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"servopanel/internal/backend"
	"servopanel/internal/logger"
	"servopanel/internal/models"
	"servopanel/internal/service"
)

func addHealth(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the backend once and print the connectivity indicator.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
			report := probe(cmd.Context(), client)
			printReport(cmd.OutOrStdout(), report)
			if report.State == models.Disconnected {
				return fmt.Errorf("backend %s unreachable", cfg.Backend.URL)
			}
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

// probe runs the same health mapping the reconciliation loop uses.
func probe(ctx context.Context, b service.Backend) models.ConnectivityReport {
	p := service.NewPollerService(b, service.NewRegistry(), service.NewBroker(), logger.Nop(), 0, 0)
	return p.CheckHealth(ctx)
}

var stateColors = map[models.Connectivity]*color.Color{
	models.Connected:    color.New(color.FgGreen, color.Bold),
	models.Degraded:     color.New(color.FgYellow, color.Bold),
	models.Disconnected: color.New(color.FgRed, color.Bold),
}

func printReport(out io.Writer, r models.ConnectivityReport) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("State"), stateColors[r.State].Sprint(r.State))
	if r.State != models.Disconnected {
		tbl.AddRow(bold.Sprint("Backend status"), r.BackendStatus)
		tbl.AddRow(bold.Sprint("Backend running"), fmt.Sprint(r.BackendRunning))
		if r.BackendURL != "" {
			tbl.AddRow(bold.Sprint("Backend URL"), r.BackendURL)
		}
		tbl.AddRow(bold.Sprint("Servos"), fmt.Sprint(r.ServoCount))
	}
	tbl.AddRow(bold.Sprint("Checked"), r.CheckedAt.Format("2006-01-02 15:04:05"))
	tbl.RightAlign(0)

	_, _ = fmt.Fprintln(out, tbl)
}
