package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gochopp/internal/pkg/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestKafkaNotifier_PublishesKeyedByBrand(t *testing.T) {
	w := &fakeWriter{}
	n := newKafkaNotifier(w, 8, logger.Nop())

	n.Notify(context.Background(), Notification{
		Category:  CategoryPartial,
		Operation: OpExternalSale,
		Brand:     "Heineken",
		Message:   "Venda parcialmente alocada.",
	})
	n.Close()

	require.Len(t, w.msgs, 1)
	assert.True(t, w.closed)

	m := w.msgs[0]
	assert.Equal(t, "Heineken", string(m.Key))

	var got Notification
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, CategoryPartial, got.Category)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.OccurredAt.IsZero())

	headers := map[string]string{}
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "partial", headers["x-category"])
	assert.Equal(t, OpExternalSale, headers["x-operation"])
}

func TestKafkaNotifier_WriteErrorIsLoggedNotPropagated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := &fakeWriter{err: errors.New("broker indisponível")}
	n := newKafkaNotifier(w, 1, logger.FromZap(zap.New(core)))

	n.Notify(context.Background(), Notification{Category: CategoryError, Operation: OpLoss})
	n.Close()

	assert.Equal(t, 1, logs.FilterMessage("Falha ao publicar notificação no Kafka.").Len())
}

func TestLogNotifier_LevelsByCategory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(logger.FromZap(zap.New(core)))

	n.Notify(context.Background(), Notification{Category: CategorySuccess, Message: "ok"})
	n.Notify(context.Background(), Notification{Category: CategoryNoEligibleKegs, Message: "sem barris", Details: map[string]interface{}{"shortfall": "25"}})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "25", entries[1].ContextMap()["shortfall"])
}

type recordingNotifier struct{ got []Notification }

func (r *recordingNotifier) Notify(_ context.Context, n Notification) { r.got = append(r.got, n) }

func TestMulti_FansOut(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	Multi{a, b}.Notify(context.Background(), Notification{Operation: OpPurchase})
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}
