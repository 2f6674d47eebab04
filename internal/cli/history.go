package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// HistoryOptions flags de history.
type HistoryOptions struct {
	*RootOptions
	DeliveryID string
	Limit      int
	Offset     int
	Stats      bool
}

// NewHistoryCommand crea el comando history.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Muestra el historial de estados de una entrega",
		Long: `Lista las transiciones de la entrega, de la más reciente a la más antigua.
Con --stats muestra el resumen: total de transiciones, cadena y cierres manuales.

Ejemplos:
  massactl history --delivery 1b2c...
  massactl history --delivery 1b2c... --stats --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.DeliveryID, "delivery", "", "ID de la entrega (obligatorio)")
	_ = cmd.MarkFlagRequired("delivery")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "máximo de entradas")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "desplazamiento")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "mostrar estadísticas en lugar de las entradas")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	ctx := context.Background()
	svc, err := opts.services(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()
	if opts.Stats {
		stats, err := svc.History.Statistics(ctx, opts.DeliveryID)
		if err != nil {
			return failure("estadísticas del historial", err)
		}
		if opts.Format == "json" {
			return writeJSON(out, stats)
		}
		fmt.Fprintf(out, "Transiciones:        %d\n", stats.TotalTransitions)
		fmt.Fprintf(out, "Estado actual:       %s\n", stats.CurrentStatus)
		fmt.Fprintf(out, "Último actor:        %s\n", stats.LastActor)
		fmt.Fprintf(out, "Cadena:              %s\n", strings.Join(stats.TransitionChain, ", "))
		fmt.Fprintf(out, "Cierres manuales:    %d\n", stats.ManualOverrides)
		fmt.Fprintf(out, "Correcciones barrido: %d\n", stats.SweepCorrections)
		return nil
	}

	entries, err := svc.History.ListByDelivery(ctx, opts.DeliveryID, opts.Limit, opts.Offset)
	if err != nil {
		return failure("historial", err)
	}
	if opts.Format == "json" {
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "Sin historial para la entrega %s\n", opts.DeliveryID)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-9s → %-9s  %-15s  %s  (%s)\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.FromStatus, e.ToStatus, e.Kind, e.Actor, e.Reason)
	}
	return nil
}
