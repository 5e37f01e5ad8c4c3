package logger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gochopp/internal/pkg/logger"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := logger.NewLogger("barulhento", "json")
	assert.Error(t, err)
}

func TestNewLogger_ValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, err := logger.NewLogger(level, "console")
		require.NoError(t, err, level)
		assert.NotNil(t, l)
	}
}

func TestFromZap_WritesFieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.FromZap(zap.New(core))

	l.With(map[string]interface{}{"brand": "Heineken"}).Info("Alocação concluída.", map[string]interface{}{"liters": "25"})
	l.Error("Falha no DB.", errors.New("conexão recusada"))

	entries := logs.All()
	require.Len(t, entries, 2)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "Heineken", ctx["brand"])
	assert.Equal(t, "25", ctx["liters"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "conexão recusada", entries[1].ContextMap()["error"])
}
