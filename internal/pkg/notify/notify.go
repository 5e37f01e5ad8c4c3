// Package notify publica o resultado de cada operação de estoque para a superfície
// de notificações da UI. A entrega é fire-and-forget: falhas são logadas, nunca propagadas.
package notify

import (
	"context"
	"time"

	"gochopp/internal/pkg/logger"
)

// Category distingue os desfechos que o usuário precisa enxergar.
type Category string

const (
	CategorySuccess        Category = "success"
	CategoryPartial        Category = "partial"
	CategoryNoEligibleKegs Category = "no_eligible_kegs"
	CategoryError          Category = "error"
)

// Operações que emitem notificações.
const (
	OpPurchase     = "keg.purchase"
	OpActivation   = "keg.activation"
	OpLoss         = "keg.loss"
	OpTransfer     = "keg.transfer"
	OpDelete       = "keg.delete"
	OpExternalSale = "sale.external"
)

// Notification é a mensagem entregue à UI.
type Notification struct {
	ID         string                 `json:"id"`
	Category   Category               `json:"category"`
	Operation  string                 `json:"operation"`
	Brand      string                 `json:"brand,omitempty"`
	KegID      string                 `json:"keg_id,omitempty"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Actor      string                 `json:"actor,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Notifier entrega notificações sem bloquear o fluxo de negócio.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier escreve as notificações no log estruturado.
// Usado quando nenhum broker Kafka está configurado.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier cria o LogNotifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

// Notify registra a notificação; categorias de falha são logadas como Warn.
func (n *LogNotifier) Notify(_ context.Context, msg Notification) {
	fields := map[string]interface{}{
		"category":  msg.Category,
		"operation": msg.Operation,
		"brand":     msg.Brand,
		"keg_id":    msg.KegID,
		"actor":     msg.Actor,
	}
	for k, v := range msg.Details {
		fields[k] = v
	}
	if msg.Category == CategorySuccess {
		n.logger.Info(msg.Message, fields)
		return
	}
	n.logger.Warn(msg.Message, fields)
}

// Multi repassa para vários notifiers.
type Multi []Notifier

// Notify entrega a todos.
func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
