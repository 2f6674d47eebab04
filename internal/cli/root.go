// Package cli comandos de massactl: operaciones administrativas del libro de masa desde la terminal.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/massa-api/internal/bootstrap"
	"github.com/jhoicas/massa-api/pkg/config"
	"github.com/jhoicas/massa-api/pkg/logger"
	"github.com/spf13/cobra"
)

// Códigos de salida.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // la operación se rechazó (validación, no encontrado, violaciones)
	ExitCommandError = 2 // configuración o conexión
)

// ExitError error con código de salida.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func wrapExit(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extrae el código de salida; ExitFailure si err no es un ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Builder construye los casos de uso. En producción lee la configuración; los tests inyectan uno en memoria.
type Builder func(ctx context.Context) (*bootstrap.Services, error)

// RootOptions flags globales.
type RootOptions struct {
	Format string // text | json
	build  Builder
}

// ValidFormats formatos de salida permitidos.
var ValidFormats = []string{"text", "json"}

// NewRootCommand crea el comando raíz con la configuración del entorno.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(fromEnvironment)
}

// NewRootCommandWith crea el comando raíz con un Builder propio.
func NewRootCommandWith(build Builder) *cobra.Command {
	opts := &RootOptions{build: build}

	cmd := &cobra.Command{
		Use:   "massactl",
		Short: "Administración del libro de masa asfáltica",
		Long:  "Barrido de integridad, finalización manual de cargas y consulta del historial de entregas.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("formato inválido %q: debe ser uno de %v", opts.Format, ValidFormats)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (json|text)")

	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewFinalizeCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	return cmd
}

func fromEnvironment(ctx context.Context) (*bootstrap.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.App.StoreDriver == config.StoreDriverMemory {
		return nil, fmt.Errorf("massactl requiere STORE_DRIVER=%s", config.StoreDriverPostgres)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "massactl"})
	return bootstrap.Build(ctx, cfg, log.Zerolog())
}

func (o *RootOptions) services(ctx context.Context) (*bootstrap.Services, error) {
	svc, err := o.build(ctx)
	if err != nil {
		return nil, wrapExit(ExitCommandError, "inicialización", err)
	}
	return svc, nil
}
