package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType é o tipo de evento de volume registrado no livro de movimentações.
type MovementType string

const (
	MovementVenda         MovementType = "Venda"
	MovementPerda         MovementType = "Perda"
	MovementTransferencia MovementType = "Transferência"
)

// Valid informa se o tipo pertence ao conjunto conhecido.
func (t MovementType) Valid() bool {
	switch t {
	case MovementVenda, MovementPerda, MovementTransferencia:
		return true
	}
	return false
}

// UnmarshalText rejeita tipos desconhecidos.
func (t *MovementType) UnmarshalText(text []byte) error {
	v := MovementType(text)
	if !v.Valid() {
		return fmt.Errorf("tipo de movimentação inválido: %q", string(text))
	}
	*t = v
	return nil
}

// Scan implementa sql.Scanner.
func (t *MovementType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return t.UnmarshalText([]byte(v))
	case []byte:
		return t.UnmarshalText(v)
	}
	return fmt.Errorf("tipo inesperado para movimentação: %T", src)
}

// Value implementa driver.Valuer.
func (t MovementType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("tipo de movimentação inválido: %q", string(t))
	}
	return string(t), nil
}

// Movement é o registro imutável de uma variação de volume em um barril.
// Liters é sempre positivo.
type Movement struct {
	ID           string          `json:"id"`
	KegID        string          `json:"keg_id"`
	Type         MovementType    `json:"type"`
	Liters       decimal.Decimal `json:"liters"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	AllocationID string          `json:"allocation_id,omitempty"`
	CreatedBy    string          `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MovementFilter filtra a listagem de movimentações. From é inclusivo, To exclusivo.
type MovementFilter struct {
	KegID string
	Type  MovementType
	From  *time.Time
	To    *time.Time
	Page  int
	Limit int
}
