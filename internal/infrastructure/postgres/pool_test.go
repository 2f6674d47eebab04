package postgres

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/massa-api/pkg/config"
)

func TestBuildPoolConfig(t *testing.T) {
	cfg := config.DBConfig{Host: "db", Port: 5432, User: "massa", Password: "x", DBName: "massa", SSLMode: "disable",
		MaxConns: 7, LockTimeout: 1500 * time.Millisecond}

	pc, err := buildPoolConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "1500ms", pc.ConnConfig.RuntimeParams["lock_timeout"])
	assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
	assert.EqualValues(t, 7, pc.MaxConns)
	assert.NotNil(t, pc.AfterConnect)
	assert.NotNil(t, pc.ConnConfig.Tracer)
}

func TestBuildPoolConfig_ValoresPorDefecto(t *testing.T) {
	pc, err := buildPoolConfig(config.DBConfig{DatabaseURL: "postgres://u:p@localhost:5432/massa"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "5000ms", pc.ConnConfig.RuntimeParams["lock_timeout"])
	assert.EqualValues(t, 25, pc.MaxConns)
}

func TestBuildPoolConfig_DSNInvalido(t *testing.T) {
	_, err := buildPoolConfig(config.DBConfig{DatabaseURL: "host=db port=no-es-puerto"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestQueryLogger(t *testing.T) {
	var buf bytes.Buffer
	l := queryLogger{log: zerolog.New(&buf)}
	l.Log(context.Background(), tracelog.LogLevelError, "Query", map[string]any{"sql": "SELECT 1"})
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)
	assert.Contains(t, buf.String(), "pgx: Query")
}
