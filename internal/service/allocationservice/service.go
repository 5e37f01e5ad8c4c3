package allocationservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gochopp/internal/domain"
	apperror "gochopp/internal/errors"
	"gochopp/internal/pkg/audit"
	"gochopp/internal/pkg/lock"
	"gochopp/internal/pkg/logger"
	"gochopp/internal/pkg/notify"
)

// KegRepository é o subconjunto do Registro de Barris usado pela alocação.
type KegRepository interface {
	ListActiveKegsForBrand(ctx context.Context, brand string) ([]domain.Keg, error)
	GetKeg(ctx context.Context, id string) (domain.Keg, error)
	UpdateKeg(ctx context.Context, id string, patch domain.KegPatch) (domain.Keg, error)
}

// MovementRepository é o subconjunto do Livro de Movimentações usado pela alocação.
type MovementRepository interface {
	AppendMovement(ctx context.Context, m domain.Movement) (domain.Movement, error)
}

// Transactor executa uma unidade de trabalho atômica.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service é o motor de alocação FIFO de vendas externas.
type Service struct {
	kegs       KegRepository
	movements  MovementRepository
	tx         Transactor
	locker     lock.BrandLocker
	notifier   notify.Notifier
	logger     logger.Logger
	maxRetries int
	now        func() time.Time
}

// NewService cria o motor de alocação. maxRetries limita as releituras após conflito de versão.
func NewService(kegs KegRepository, movements MovementRepository, tx Transactor, locker lock.BrandLocker, notifier notify.Notifier, logger logger.Logger, maxRetries int) *Service {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Service{
		kegs:       kegs,
		movements:  movements,
		tx:         tx,
		locker:     locker,
		notifier:   notifier,
		logger:     logger,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SaleDescription é a anotação gravada em cada movimentação de consumo FIFO.
func SaleDescription(brand string) string {
	return fmt.Sprintf("Consumo FIFO de venda externa (%s)", brand)
}

// Allocate drena os barris ativos da marca, do mais antigo para o mais novo, até atender
// totalLiters ou esgotar os barris elegíveis. Atendimento parcial não é erro: o
// resultado traz o volume não alocado em Shortfall.
func (s *Service) Allocate(ctx context.Context, brand string, totalLiters decimal.Decimal, date time.Time) (domain.AllocationResult, error) {
	result := domain.AllocationResult{
		AllocationID: uuid.New().String(),
		Brand:        brand,
		Requested:    totalLiters,
		Fulfilled:    decimal.Zero,
		Shortfall:    decimal.Zero,
		Date:         date,
		Consumptions: []domain.KegConsumption{},
	}

	if !totalLiters.IsPositive() {
		s.logger.Debug("Volume solicitado não positivo; nada a alocar.", map[string]interface{}{
			"brand":        brand,
			"total_liters": totalLiters.String(),
		})
		result.Outcome = domain.OutcomeSkipped
		return result, nil
	}

	log := s.logger.With(map[string]interface{}{"allocation_id": result.AllocationID, "brand": brand})
	log.Debug("Iniciando alocação FIFO.", map[string]interface{}{"total_liters": totalLiters.String()})

	unlock, err := s.locker.Lock(ctx, brand)
	if err != nil {
		return result, apperror.NewInternalError(fmt.Sprintf("Falha ao obter lock da marca %s.", brand), err)
	}
	defer unlock()

	var (
		remaining    decimal.Decimal
		consumptions []domain.KegConsumption
	)
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		remaining = totalLiters
		consumptions = consumptions[:0]

		active, err := s.kegs.ListActiveKegsForBrand(txCtx, brand)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return apperror.NewNoEligibleKegsError(brand)
		}

		for _, k := range active {
			if !remaining.IsPositive() {
				break
			}
			c, err := s.consume(txCtx, log, k, brand, remaining, date, result.AllocationID)
			if err != nil {
				return err
			}
			if c == nil {
				continue
			}
			remaining = remaining.Sub(c.Consumed)
			consumptions = append(consumptions, *c)
		}
		// Todos os barris listados saíram do conjunto elegível durante as releituras.
		if len(consumptions) == 0 {
			return apperror.NewNoEligibleKegsError(brand)
		}
		return nil
	})
	if err != nil {
		var noKegs *apperror.NoEligibleKegsError
		if errors.As(err, &noKegs) {
			log.Warn("Nenhum barril elegível para a venda.", map[string]interface{}{"total_liters": totalLiters.String()})
			result.Outcome = domain.OutcomeNoEligibleKegs
			result.Shortfall = totalLiters
			return result, err
		}
		log.Error("Alocação FIFO abortada.", err)
		return result, err
	}

	result.Consumptions = consumptions
	result.Shortfall = remaining
	result.Fulfilled = totalLiters.Sub(remaining)
	if remaining.IsPositive() {
		result.Outcome = domain.OutcomePartial
		log.Warn("Venda atendida parcialmente.", map[string]interface{}{
			"requested": totalLiters.String(),
			"fulfilled": result.Fulfilled.String(),
			"shortfall": remaining.String(),
		})
	} else {
		result.Outcome = domain.OutcomeFulfilled
		log.Info("Venda alocada com sucesso.", map[string]interface{}{
			"requested": totalLiters.String(),
			"kegs":      len(consumptions),
		})
	}
	return result, nil
}

// consume drena min(atual, restante) de um barril. Em conflito de versão o barril é relido e o
// passo refeito; um barril que deixou de ser elegível é pulado (retorno nil, nil).
func (s *Service) consume(ctx context.Context, log logger.Logger, k domain.Keg, brand string, remaining decimal.Decimal, date time.Time, allocationID string) (*domain.KegConsumption, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if !k.IsEligible(brand) {
			log.Debug("Barril deixou de ser elegível; pulando.", map[string]interface{}{"keg_id": k.ID, "status": string(k.Status)})
			return nil, nil
		}

		consumption := decimal.Min(k.CurrentLiters, remaining)
		newLiters := k.CurrentLiters.Sub(consumption)
		status := domain.KegStatusAtivo
		if !newLiters.IsPositive() {
			status = domain.KegStatusEsgotado
			newLiters = decimal.Zero
		}

		updated, err := s.kegs.UpdateKeg(ctx, k.ID, domain.KegPatch{
			Status:          &status,
			CurrentLiters:   &newLiters,
			ExpectedVersion: &k.Version,
		})
		if err != nil {
			if !apperror.IsConflict(err) {
				log.Warn("Falha ao atualizar barril durante a alocação.", map[string]interface{}{
					"keg_id":      k.ID,
					"consumption": consumption.String(),
					"step":        "update_keg",
					"error":       err.Error(),
				})
				return nil, err
			}

			log.Warn("Conflito de versão na alocação; relendo barril.", map[string]interface{}{
				"keg_id":  k.ID,
				"attempt": attempt,
			})
			k, err = s.kegs.GetKeg(ctx, k.ID)
			if apperror.IsNotFound(err) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		mv, err := s.movements.AppendMovement(ctx, domain.Movement{
			KegID:        k.ID,
			Type:         domain.MovementVenda,
			Liters:       consumption,
			Date:         date,
			Description:  SaleDescription(brand),
			AllocationID: allocationID,
			CreatedBy:    audit.ActorFrom(ctx),
		})
		if err != nil {
			// Sem transação (driver em memória) o barril já foi drenado: o log permite reconciliar.
			log.Warn("Falha ao registrar movimentação após drenar barril.", map[string]interface{}{
				"keg_id":      k.ID,
				"consumption": consumption.String(),
				"step":        "append_movement",
				"error":       err.Error(),
			})
			return nil, err
		}

		log.Debug("Barril consumido.", map[string]interface{}{
			"keg_id":      k.ID,
			"consumption": consumption.String(),
			"remaining":   updated.CurrentLiters.String(),
			"status":      string(updated.Status),
		})
		return &domain.KegConsumption{
			KegID:           updated.ID,
			Code:            updated.Code,
			Consumed:        consumption,
			RemainingLiters: updated.CurrentLiters,
			Status:          updated.Status,
			MovementID:      mv.ID,
		}, nil
	}

	return nil, apperror.NewConflictError(fmt.Sprintf("O barril %s mudou %d vezes durante a alocação.", k.ID, s.maxRetries))
}

// ProcessExternalSale valida e aloca uma venda externa e notifica o desfecho.
// Volume ausente ou não positivo é rejeitado aqui; Allocate o trata como no-op.
func (s *Service) ProcessExternalSale(ctx context.Context, req domain.ExternalSaleRequest) (domain.AllocationResult, error) {
	brand := strings.TrimSpace(req.Brand)
	if brand == "" {
		return domain.AllocationResult{}, apperror.NewValidationError("A marca é obrigatória.")
	}
	if !req.TotalLiters.IsPositive() {
		return domain.AllocationResult{}, apperror.NewInvalidVolumeError("o volume da venda deve ser > 0")
	}
	// Cada consumo vira uma movimentação: o total precisa caber na escala gravada.
	if !domain.FitsLitersScale(req.TotalLiters) {
		return domain.AllocationResult{}, apperror.NewValidationError(fmt.Sprintf("O volume da venda aceita no máximo %d casas decimais.", domain.LitersScale))
	}
	date := s.now()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	result, err := s.Allocate(ctx, brand, req.TotalLiters, date)
	s.notifyOutcome(ctx, result, err)
	return result, err
}

func (s *Service) notifyOutcome(ctx context.Context, result domain.AllocationResult, err error) {
	n := notify.Notification{
		ID:        result.AllocationID,
		Operation: notify.OpExternalSale,
		Brand:     result.Brand,
		Actor:     audit.ActorFrom(ctx),
		Details: map[string]interface{}{
			"requested": result.Requested.String(),
			"fulfilled": result.Fulfilled.String(),
			"shortfall": result.Shortfall.String(),
		},
	}

	switch {
	case result.Outcome == domain.OutcomeSkipped:
		return
	case result.Outcome == domain.OutcomeNoEligibleKegs:
		n.Category = notify.CategoryNoEligibleKegs
		n.Message = fmt.Sprintf("Nenhum barril ativo de %s para a venda de %s L.", result.Brand, result.Requested.String())
	case err != nil:
		n.Category = notify.CategoryError
		n.Message = fmt.Sprintf("Falha ao processar venda de %s.", result.Brand)
		n.Details["error"] = err.Error()
	case result.Outcome == domain.OutcomePartial:
		n.Category = notify.CategoryPartial
		n.Message = fmt.Sprintf("Venda de %s atendida parcialmente: faltaram %s L.", result.Brand, result.Shortfall.String())
	default:
		n.Category = notify.CategorySuccess
		n.Message = fmt.Sprintf("Venda de %s L de %s alocada.", result.Requested.String(), result.Brand)
	}
	s.notifier.Notify(ctx, n)
}
