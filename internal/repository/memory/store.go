// Package memory implementa o Registro de Barris e o Livro de Movimentações em memória.
// Usado com STORAGE_DRIVER=memory (desenvolvimento e testes); não há rollback.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gochopp/internal/domain"
	"gochopp/internal/errors"
)

// KegStore guarda barris em um mapa protegido por mutex.
type KegStore struct {
	mu   sync.RWMutex
	kegs map[string]domain.Keg
	seq  int64
}

// NewKegStore cria um registro vazio.
func NewKegStore() *KegStore {
	return &KegStore{kegs: map[string]domain.Keg{}}
}

// CreateKegs insere os barris em status Novo, cheios.
func (s *KegStore) CreateKegs(_ context.Context, specs []domain.KegSpec) ([]domain.Keg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	out := make([]domain.Keg, 0, len(specs))
	for _, spec := range specs {
		if !spec.Capacity.IsPositive() {
			return nil, errors.NewInvalidVolumeError("a capacidade do barril deve ser > 0")
		}
		s.seq++
		k := domain.Keg{
			ID:            uuid.New().String(),
			Brand:         spec.Brand,
			Code:          spec.Code,
			Capacity:      spec.Capacity,
			CurrentLiters: spec.Capacity,
			PurchasePrice: spec.PurchasePrice,
			PurchaseDate:  spec.PurchaseDate,
			Status:        domain.KegStatusNovo,
			Version:       1,
			Seq:           s.seq,
			CreatedBy:     spec.CreatedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		s.kegs[k.ID] = k
		out = append(out, k)
	}
	return out, nil
}

// GetKeg busca um barril pelo ID.
func (s *KegStore) GetKeg(_ context.Context, id string) (domain.Keg, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.kegs[id]
	if !ok {
		return domain.Keg{}, errors.NewNotFoundError(fmt.Sprintf("Barril com ID %s não encontrado.", id))
	}
	return k, nil
}

// ListActiveKegsForBrand devolve os barris elegíveis em ordem FIFO.
func (s *KegStore) ListActiveKegsForBrand(_ context.Context, brand string) ([]domain.Keg, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Keg{}
	for _, k := range s.kegs {
		if k.IsEligible(brand) {
			out = append(out, k)
		}
	}
	sortFIFO(out)
	return out, nil
}

func sortFIFO(kegs []domain.Keg) {
	sort.SliceStable(kegs, func(i, j int) bool {
		a, b := kegs[i].ActivationSortKey(), kegs[j].ActivationSortKey()
		if !a.Equal(b) {
			return a.Before(b)
		}
		return kegs[i].Seq < kegs[j].Seq
	})
}

// ListKegs lista barris pela ordem de inserção.
func (s *KegStore) ListKegs(_ context.Context, filter domain.KegFilter) ([]domain.Keg, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Keg{}
	for _, k := range s.kegs {
		if filter.Brand != "" && k.Brand != filter.Brand {
			continue
		}
		if filter.Status != "" && k.Status != filter.Status {
			continue
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return paginate(out, filter.Page, filter.Limit), nil
}

// UpdateKeg aplica o patch, com verificação de versão quando ExpectedVersion é informado.
func (s *KegStore) UpdateKeg(_ context.Context, id string, patch domain.KegPatch) (domain.Keg, error) {
	if patch.Status == nil && patch.CurrentLiters == nil && patch.ActivationDate == nil {
		return domain.Keg{}, errors.NewValidationError("Nenhum campo informado para atualização do barril.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.kegs[id]
	if !ok {
		return domain.Keg{}, errors.NewNotFoundError(fmt.Sprintf("Barril com ID %s não encontrado para atualização.", id))
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != k.Version {
		return domain.Keg{}, errors.NewConflictError("O barril foi modificado por outra operação. Tente novamente.")
	}

	updated := patch.Apply(k)
	if updated.CurrentLiters.IsNegative() || updated.CurrentLiters.GreaterThan(updated.Capacity) {
		return domain.Keg{}, errors.NewInvalidVolumeError(fmt.Sprintf("volume %s fora de [0, %s]", updated.CurrentLiters, updated.Capacity))
	}
	if !updated.Status.Valid() {
		return domain.Keg{}, errors.NewValidationError(fmt.Sprintf("Status de barril inválido: %q.", string(updated.Status)))
	}
	updated.Version++
	updated.UpdatedAt = time.Now().UTC()
	s.kegs[id] = updated
	return updated, nil
}

// DeleteKeg remove o barril.
func (s *KegStore) DeleteKeg(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kegs[id]; !ok {
		return errors.NewNotFoundError(fmt.Sprintf("Barril com ID %s não encontrado para exclusão.", id))
	}
	delete(s.kegs, id)
	return nil
}

// BrandSummary agrega os barris elegíveis da marca.
func (s *KegStore) BrandSummary(ctx context.Context, brand string) (domain.BrandSummary, error) {
	kegs, _ := s.ListActiveKegsForBrand(ctx, brand)

	summary := domain.BrandSummary{Brand: brand, ActiveKegs: len(kegs)}
	for _, k := range kegs {
		summary.AvailableLiters = summary.AvailableLiters.Add(k.CurrentLiters)
		if k.ActivationDate != nil && (summary.OldestActivation == nil || k.ActivationDate.Before(*summary.OldestActivation)) {
			d := *k.ActivationDate
			summary.OldestActivation = &d
		}
	}
	return summary, nil
}

// MovementStore é o livro de movimentações em memória, só acréscimo.
type MovementStore struct {
	mu        sync.RWMutex
	movements []domain.Movement
}

// NewMovementStore cria um livro vazio.
func NewMovementStore() *MovementStore {
	return &MovementStore{}
}

// AppendMovement grava a movimentação; litros não positivos são rejeitados.
func (s *MovementStore) AppendMovement(_ context.Context, m domain.Movement) (domain.Movement, error) {
	if !m.Liters.IsPositive() {
		return domain.Movement{}, errors.NewInvalidVolumeError(fmt.Sprintf("a movimentação deve ter litros > 0 (recebido %s)", m.Liters.String()))
	}
	if !m.Type.Valid() {
		return domain.Movement{}, errors.NewValidationError(fmt.Sprintf("Tipo de movimentação inválido: %q.", string(m.Type)))
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.movements = append(s.movements, m)
	s.mu.Unlock()
	return m, nil
}

// ListMovements devolve as movimentações da mais recente para a mais antiga.
func (s *MovementStore) ListMovements(_ context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Movement{}
	// Percorre de trás para frente: no empate de data, a inserida por último vem antes.
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if filter.KegID != "" && m.KegID != filter.KegID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.From != nil && m.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !m.Date.Before(*filter.To) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return paginate(out, filter.Page, filter.Limit), nil
}

// Transactor executa fn diretamente: o driver em memória não tem transações.
type Transactor struct{}

// WithinTx chama fn com o mesmo contexto.
func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
