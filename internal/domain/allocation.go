package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationOutcome distingue os resultados possíveis de uma alocação FIFO.
type AllocationOutcome string

const (
	OutcomeFulfilled      AllocationOutcome = "fulfilled"
	OutcomePartial        AllocationOutcome = "partial"
	OutcomeNoEligibleKegs AllocationOutcome = "no_eligible_kegs"
	OutcomeSkipped        AllocationOutcome = "skipped" // volume solicitado <= 0
)

// KegConsumption registra quanto um barril contribuiu para a alocação.
type KegConsumption struct {
	KegID           string          `json:"keg_id"`
	Code            string          `json:"code"`
	Consumed        decimal.Decimal `json:"consumed"`
	RemainingLiters decimal.Decimal `json:"remaining_liters"`
	Status          KegStatus       `json:"status"`
	MovementID      string          `json:"movement_id"`
}

// AllocationResult é devolvido por ProcessExternalSale.
type AllocationResult struct {
	AllocationID string            `json:"allocation_id"`
	Brand        string            `json:"brand"`
	Requested    decimal.Decimal   `json:"requested_liters"`
	Fulfilled    decimal.Decimal   `json:"fulfilled_liters"`
	Shortfall    decimal.Decimal   `json:"shortfall_liters"`
	Outcome      AllocationOutcome `json:"outcome"`
	Date         time.Time         `json:"date"`
	Consumptions []KegConsumption  `json:"consumptions"`
}

// ExternalSaleRequest é o payload da venda externa a ser alocada.
type ExternalSaleRequest struct {
	Brand       string          `json:"brand" validate:"required,max=100"`
	TotalLiters decimal.Decimal `json:"total_liters"`
	Date        *time.Time      `json:"date"`
}
