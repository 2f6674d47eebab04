package cli

import (
	"context"
	"fmt"

	"github.com/jhoicas/massa-api/internal/application/finalization"
	"github.com/spf13/cobra"
)

// FinalizeOptions flags de finalize.
type FinalizeOptions struct {
	*RootOptions
	LoadID string
	Actor  string
	Reason string
}

// NewFinalizeCommand crea el comando finalize.
func NewFinalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FinalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Finaliza manualmente una carga",
		Long: `Cierra la carga aunque quede residuo de pesaje y deja la entrega en DELIVERED.
La transición queda marcada como MANUAL_OVERRIDE en el historial.

Ejemplo:
  massactl finalize --load 6f1c... --actor ops:maria --reason "residuo de báscula"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinalize(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.LoadID, "load", "", "ID de la carga (obligatorio)")
	_ = cmd.MarkFlagRequired("load")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "quién autoriza el cierre (obligatorio)")
	_ = cmd.MarkFlagRequired("actor")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "motivo del cierre")
	return cmd
}

func runFinalize(cmd *cobra.Command, opts *FinalizeOptions) error {
	ctx := context.Background()
	svc, err := opts.services(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.Finalizer.ForceFinalize(ctx, finalization.Input{
		LoadRecordID: opts.LoadID,
		Actor:        opts.Actor,
		Reason:       opts.Reason,
	})
	if err != nil {
		return failure("finalización manual", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, map[string]interface{}{
			"load_record_id":   opts.LoadID,
			"total_applied":    res.TotalApplied,
			"total_mass":       res.TotalMass,
			"num_applications": res.NumApplications,
			"residual":         res.Residual,
			"status":           res.Status,
		})
	}
	fmt.Fprintf(out, "Carga %s finalizada: %s t aplicadas de %s t en %d aplicaciones (residuo %s t), entrega %s\n",
		opts.LoadID, res.TotalApplied, res.TotalMass, res.NumApplications, res.Residual, res.Status)
	return nil
}
