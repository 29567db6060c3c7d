package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"servopanel/internal/backend"
	"servopanel/internal/models"
	"servopanel/internal/repository"
)

func addFleet(topLevel *cobra.Command, opts *rootOptions) {
	cached := false
	cmd := &cobra.Command{
		Use:   "fleet",
		Short: "Print the servo fleet as the backend reports it.",
		Example: `
servopanel fleet
servopanel fleet --cached
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cached {
				return printSnapshot(repository.NewSnapshotDiskv(cfg.SnapshotDir), cmd.OutOrStdout())
			}
			client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
			return printFleet(cmd.Context(), client, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "print the last listing saved by serve instead of asking the backend")
	topLevel.AddCommand(cmd)
}

type servoLister interface {
	ListServos(ctx context.Context) ([]backend.Servo, error)
}

func printFleet(ctx context.Context, b servoLister, out io.Writer) error {
	servos, err := b.ListServos(ctx)
	if err != nil {
		return err
	}
	rows := make([]fleetRow, 0, len(servos))
	for _, s := range servos {
		rows = append(rows, fleetRow{cfg: s.ActuatorConfig, position: s.CurrentPosition})
	}
	writeFleet(out, rows)
	return nil
}

func printSnapshot(repo repository.SnapshotRepo, out io.Writer) error {
	snap, err := repo.LoadFleet()
	if err != nil {
		return err
	}
	rows := make([]fleetRow, 0, len(snap.Servos))
	for _, a := range snap.Servos {
		rows = append(rows, fleetRow{cfg: a.ActuatorConfig, position: float64(a.CurrentPosition)})
	}
	_, _ = fmt.Fprintf(out, "snapshot from %s\n\n", snap.SavedAt.Local().Format("2006-01-02 15:04:05"))
	writeFleet(out, rows)
	return nil
}

type fleetRow struct {
	cfg      models.ActuatorConfig
	position float64
}

func writeFleet(out io.Writer, rows []fleetRow) {
	bold := color.New(color.Bold)
	off := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Name"), bold.Sprint("Ch"),
		bold.Sprint("Range"), bold.Sprint("Position"), bold.Sprint("Enabled"))
	enabled := 0
	for _, r := range rows {
		state := "yes"
		if r.cfg.Enabled {
			enabled++
		} else {
			state = off.Sprint("no")
		}
		tbl.AddRow(r.cfg.ID, r.cfg.Name, strconv.Itoa(r.cfg.Channel),
			fmt.Sprintf("%d-%d°", r.cfg.MinAngle, r.cfg.MaxAngle),
			fmt.Sprintf("%.0f°", r.position), state)
	}
	tbl.RightAlign(2)

	_, _ = fmt.Fprintln(out, tbl)
	_, _ = fmt.Fprintf(out, "\n%d servos active\n", enabled)
}
