package recording

import "context"

// LoadLocker bloqueo distribuido opcional por carga, previo al bloqueo de fila de la BD.
// Si el bloqueo está tomado por otro proceso debe devolver un ConflictError (se reintenta).
// El bloqueo de fila en la transacción sigue siendo la autoridad.
type LoadLocker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

// NoopLocker no bloquea nada; se usa cuando no hay Redis configurado.
type NoopLocker struct{}

// Obtain devuelve una liberación vacía.
func (NoopLocker) Obtain(context.Context, string) (func(), error) {
	return func() {}, nil
}

func lockKey(loadRecordID string) string {
	return "massa:load:" + loadRecordID
}
