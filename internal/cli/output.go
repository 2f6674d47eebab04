package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/jhoicas/massa-api/internal/domain"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// failure traduce el error de un caso de uso a un código de salida.
func failure(message string, err error) error {
	if errors.Is(err, domain.ErrUnavailable) {
		return wrapExit(ExitCommandError, message, err)
	}
	return wrapExit(ExitFailure, message, err)
}
