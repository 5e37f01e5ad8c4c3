package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"gochopp/internal/pkg/logger"
)

// messageWriter é o subconjunto de *kafka.Writer usado pelo publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publica notificações em um tópico, com chave = marca
// (notificações de uma mesma marca ficam na mesma partição, em ordem).
type KafkaNotifier struct {
	w       messageWriter
	inbox   chan kafka.Message
	done    chan struct{}
	logger  logger.Logger
	timeout time.Duration

	closeOnce sync.Once
}

// NewKafkaNotifier cria o writer e inicia o loop de envio.
func NewKafkaNotifier(brokers []string, topic string, buf int, log logger.Logger) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaNotifier(w, buf, log)
}

func newKafkaNotifier(w messageWriter, buf int, log logger.Logger) *KafkaNotifier {
	if buf <= 0 {
		buf = 256
	}
	n := &KafkaNotifier{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		done:    make(chan struct{}),
		logger:  log,
		timeout: 5 * time.Second,
	}
	go n.loop()
	return n
}

func (n *KafkaNotifier) loop() {
	defer close(n.done)
	for m := range n.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		if err := n.w.WriteMessages(ctx, m); err != nil {
			n.logger.Error("Falha ao publicar notificação no Kafka.", err)
		}
		cancel()
	}
	if err := n.w.Close(); err != nil {
		n.logger.Error("Falha ao fechar writer do Kafka.", err)
	}
}

// Notify enfileira a notificação. Com a fila cheia a mensagem é descartada e logada:
// a operação de estoque nunca espera pelo broker.
func (n *KafkaNotifier) Notify(_ context.Context, msg Notification) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("Falha ao serializar notificação.", err)
		return
	}

	m := kafka.Message{
		Key:   []byte(msg.Brand),
		Value: payload,
		Time:  msg.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-category", Value: []byte(msg.Category)},
			{Key: "x-operation", Value: []byte(msg.Operation)},
		},
	}

	select {
	case n.inbox <- m:
	default:
		n.logger.Warn("Fila de notificações cheia, mensagem descartada.", map[string]interface{}{
			"operation": msg.Operation,
			"category":  msg.Category,
			"brand":     msg.Brand,
		})
	}
}

// Close drena a fila, fecha o writer e aguarda o loop terminar.
func (n *KafkaNotifier) Close() {
	n.closeOnce.Do(func() { close(n.inbox) })
	<-n.done
}
