package cli

import (
	"context"
	"fmt"

	"github.com/jhoicas/massa-api/internal/application/audit"
	"github.com/spf13/cobra"
)

// SweepOptions flags de sweep.
type SweepOptions struct {
	*RootOptions
	Actor string
}

// NewSweepCommand crea el comando sweep.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Ejecuta el barrido de integridad",
		Long: `Recalcula el estado de cada entrega activa a partir de su masa y corrige las desviaciones.
Las cargas con más masa aplicada que real se reportan y el comando termina con código 1.

Ejemplos:
  massactl sweep
  massactl sweep --actor ops:maria --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Actor, "actor", audit.DefaultActor, "actor registrado en el historial")
	return cmd
}

func runSweep(cmd *cobra.Command, opts *SweepOptions) error {
	ctx := context.Background()
	svc, err := opts.services(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Auditor.Sweep(ctx, opts.Actor)
	if err != nil {
		return failure("barrido de integridad", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Entregas revisadas:      %d\n", report.TotalChecked)
		fmt.Fprintf(out, "Corregidas a SCHEDULED:  %d\n", report.CorrectedToScheduled)
		fmt.Fprintf(out, "Corregidas a SENT:       %d\n", report.CorrectedToSent)
		fmt.Fprintf(out, "Corregidas a DELIVERED:  %d\n", report.CorrectedToDelivered)
		fmt.Fprintf(out, "Inconsistencias:         %d\n", report.InconsistenciesFound)
		for _, v := range report.Violations {
			fmt.Fprintf(out, "  VIOLACIÓN entrega=%s carga=%s aplicado=%s real=%s: %s\n",
				v.DeliveryItemID, v.LoadRecordID, v.AppliedMass, v.ActualMass, v.Detail)
		}
		for _, f := range report.Failed {
			fmt.Fprintf(out, "  ERROR entrega=%s: %s\n", f.DeliveryItemID, f.Error)
		}
	}

	if len(report.Violations) > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d violaciones de integridad requieren revisión manual", len(report.Violations))}
	}
	return nil
}
