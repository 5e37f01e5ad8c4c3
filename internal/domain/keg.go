package domain

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// KegStatus representa o estado do barril no ciclo de vida.
// O conjunto é fechado: valores fora dele são rejeitados na leitura (JSON e DB).
type KegStatus string

const (
	KegStatusNovo        KegStatus = "Novo"
	KegStatusAtivo       KegStatus = "Ativo"
	KegStatusEsgotado    KegStatus = "Esgotado"
	KegStatusEstragado   KegStatus = "Estragado"
	KegStatusTransferido KegStatus = "Transferido"
)

// Valid informa se o status pertence ao conjunto conhecido.
func (s KegStatus) Valid() bool {
	switch s {
	case KegStatusNovo, KegStatusAtivo, KegStatusEsgotado, KegStatusEstragado, KegStatusTransferido:
		return true
	}
	return false
}

// IsTerminal retorna true para Esgotado, Estragado e Transferido.
// Nenhum litro pode ser drenado de um barril em estado terminal.
func (s KegStatus) IsTerminal() bool {
	return s == KegStatusEsgotado || s == KegStatusEstragado || s == KegStatusTransferido
}

// UnmarshalText rejeita status desconhecidos vindos do payload.
func (s *KegStatus) UnmarshalText(text []byte) error {
	v := KegStatus(text)
	if !v.Valid() {
		return fmt.Errorf("status de barril inválido: %q", string(text))
	}
	*s = v
	return nil
}

// Scan implementa sql.Scanner.
func (s *KegStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	}
	return fmt.Errorf("tipo inesperado para status de barril: %T", src)
}

// Value implementa driver.Valuer.
func (s KegStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("status de barril inválido: %q", string(s))
	}
	return string(s), nil
}

// Keg representa um barril físico de uma marca.
// CurrentLiters fica em [0, Capacity] e é zero em qualquer estado terminal.
type Keg struct {
	ID             string          `json:"id"`
	Brand          string          `json:"brand"`
	Code           string          `json:"code"`
	Capacity       decimal.Decimal `json:"capacity"`
	CurrentLiters  decimal.Decimal `json:"current_liters"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	PurchaseDate   time.Time       `json:"purchase_date"`
	ActivationDate *time.Time      `json:"activation_date,omitempty"`
	Status         KegStatus       `json:"status"`
	Version        int             `json:"version"` // Para Controle de Concorrência Otimista (OCC)
	Seq            int64           `json:"-"`       // Ordem de inserção, desempate do FIFO
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MinActivationDate é o sentinela de ordenação para barris sem data de ativação:
// eles são tratados como os mais antigos e drenados primeiro.
var MinActivationDate = time.Unix(0, 0).UTC()

// LitersScale é o número de casas decimais persistidas para volumes (NUMERIC(10,3)).
const LitersScale = 3

// MaxLiters é o limite exclusivo de um volume armazenado em NUMERIC(10,3).
var MaxLiters = decimal.New(1, 7)

// FitsLitersScale informa se v não perde precisão ao ser gravado.
// Zeros à direita são aceitos: 20.0000 equivale a 20.000.
func FitsLitersScale(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(LitersScale))
}

// FitsLitersColumn informa se v pode ser gravado sem arredondar nem estourar a coluna.
func FitsLitersColumn(v decimal.Decimal) bool {
	return FitsLitersScale(v) && v.Abs().LessThan(MaxLiters)
}

// ActivationSortKey devolve a data usada na ordenação FIFO.
func (k Keg) ActivationSortKey() time.Time {
	if k.ActivationDate == nil {
		return MinActivationDate
	}
	return *k.ActivationDate
}

// IsEligible indica se o barril participa da alocação FIFO da marca.
func (k Keg) IsEligible(brand string) bool {
	return k.Status == KegStatusAtivo && k.CurrentLiters.IsPositive() && k.Brand == brand
}

// KegSpec descreve um barril a ser criado pelo Registro.
type KegSpec struct {
	Brand         string
	Code          string
	Capacity      decimal.Decimal
	PurchasePrice decimal.Decimal
	PurchaseDate  time.Time
	CreatedBy     string
}

// KegPatch é a atualização parcial aplicada por UpdateKeg.
// Campos nil não são alterados. ExpectedVersion, quando presente, torna o
// update condicional (OCC).
type KegPatch struct {
	Status          *KegStatus
	CurrentLiters   *decimal.Decimal
	ActivationDate  *time.Time
	ExpectedVersion *int
}

// Apply aplica o patch sobre uma cópia do barril.
func (p KegPatch) Apply(k Keg) Keg {
	if p.Status != nil {
		k.Status = *p.Status
	}
	if p.CurrentLiters != nil {
		k.CurrentLiters = *p.CurrentLiters
	}
	if p.ActivationDate != nil {
		d := *p.ActivationDate
		k.ActivationDate = &d
	}
	return k
}

// KegFilter define os parâmetros de busca e paginação da listagem de barris.
type KegFilter struct {
	Brand  string
	Status KegStatus
	Page   int
	Limit  int
}

// BrandSummary resume o estoque ativo de uma marca.
type BrandSummary struct {
	Brand            string          `json:"brand"`
	ActiveKegs       int             `json:"active_kegs"`
	AvailableLiters  decimal.Decimal `json:"available_liters"`
	OldestActivation *time.Time      `json:"oldest_activation,omitempty"`
}

// PurchaseRequest é o payload de registro de compra de barris.
// TotalPrice é dividido igualmente entre os Quantity barris criados.
type PurchaseRequest struct {
	Brand          string          `json:"brand" validate:"required,max=100"`
	CapacityPerKeg decimal.Decimal `json:"capacity_per_keg"`
	Quantity       int             `json:"quantity" validate:"required,min=1,max=500"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	PurchaseDate   time.Time       `json:"purchase_date" validate:"required"`
	Code           string          `json:"code" validate:"max=60"`
}

// ActivationRequest é o payload de ativação de barril (Novo -> Ativo).
type ActivationRequest struct {
	Date *time.Time `json:"date"`
}

// LossRequest é o payload de registro de perda.
type LossRequest struct {
	Liters      decimal.Decimal `json:"liters"`
	Description string          `json:"description" validate:"max=500"`
}

// TransferRequest é o payload de transferência de barril.
type TransferRequest struct {
	Liters      decimal.Decimal `json:"liters"`
	Destination string          `json:"destination" validate:"required,max=200"`
}
