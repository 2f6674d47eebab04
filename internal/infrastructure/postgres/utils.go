package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/massa-api/internal/domain"
)

// Códigos SQLSTATE que classify distingue. Los cuatro primeros indican una carrera perdida.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"

	// identificador que no es UUID; ninguna fila puede tenerlo
	sqlStateInvalidTextRepresentation = "22P02"
)

// classify es el único punto que traduce errores de pgx a errores de dominio:
// carreras → ConflictError (se reintentan), conexión y timeouts → InfrastructureError,
// id mal formado → ErrNotFound.
// Cualquier otro error se envuelve tal cual con op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation, sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return domain.NewConflict(op, err)
		case sqlStateInvalidTextRepresentation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrNotFound, pgErr.Message)
		}
		if strings.HasPrefix(pgErr.Code, "08") { // connection_exception
			return domain.NewInfrastructure(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewInfrastructure(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return domain.NewInfrastructure(op, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return domain.NewInfrastructure(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
