package kegservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gochopp/internal/domain"
	apperror "gochopp/internal/errors"
	"gochopp/internal/pkg/audit"
	"gochopp/internal/pkg/lock"
	"gochopp/internal/pkg/logger"
	"gochopp/internal/pkg/notify"
)

// KegRepository define o contrato que o Serviço de Barris espera do Registro.
type KegRepository interface {
	CreateKegs(ctx context.Context, specs []domain.KegSpec) ([]domain.Keg, error)
	GetKeg(ctx context.Context, id string) (domain.Keg, error)
	ListKegs(ctx context.Context, filter domain.KegFilter) ([]domain.Keg, error)
	UpdateKeg(ctx context.Context, id string, patch domain.KegPatch) (domain.Keg, error)
	DeleteKeg(ctx context.Context, id string) error
	BrandSummary(ctx context.Context, brand string) (domain.BrandSummary, error)
}

// MovementRepository define o contrato esperado do Livro de Movimentações.
type MovementRepository interface {
	AppendMovement(ctx context.Context, m domain.Movement) (domain.Movement, error)
	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error)
}

// Transactor executa uma unidade de trabalho atômica.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implementa as operações de ciclo de vida dos barris.
type Service struct {
	kegs      KegRepository
	movements MovementRepository
	tx        Transactor
	locker    lock.BrandLocker
	notifier  notify.Notifier
	logger    logger.Logger
	now       func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Barris.
func NewService(kegs KegRepository, movements MovementRepository, tx Transactor, locker lock.BrandLocker, notifier notify.Notifier, logger logger.Logger) *Service {
	return &Service{
		kegs:      kegs,
		movements: movements,
		tx:        tx,
		locker:    locker,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterKegPurchase cria Quantity barris Novos, cada um com TotalPrice/Quantity arredondado em centavos.
func (s *Service) RegisterKegPurchase(ctx context.Context, req domain.PurchaseRequest) ([]domain.Keg, error) {
	s.logger.Debug("Iniciando registro de compra no serviço.", map[string]interface{}{
		"brand":    req.Brand,
		"quantity": req.Quantity,
	})

	brand := strings.TrimSpace(req.Brand)
	switch {
	case brand == "":
		return nil, apperror.NewValidationError("A marca é obrigatória.")
	case !req.CapacityPerKeg.IsPositive():
		return nil, apperror.NewValidationError("A capacidade por barril deve ser maior que zero.")
	case !domain.FitsLitersColumn(req.CapacityPerKeg):
		return nil, apperror.NewValidationError(litersPrecisionMessage("capacidade por barril"))
	case req.Quantity < 1:
		return nil, apperror.NewValidationError("A quantidade deve ser de pelo menos 1 barril.")
	case req.TotalPrice.IsNegative():
		return nil, apperror.NewValidationError("O preço total não pode ser negativo.")
	case req.PurchaseDate.IsZero():
		return nil, apperror.NewValidationError("A data de compra é obrigatória.")
	}

	unitPrice := req.TotalPrice.Div(decimal.NewFromInt(int64(req.Quantity))).Round(2)
	actor := audit.ActorFrom(ctx)

	specs := make([]domain.KegSpec, req.Quantity)
	for i := range specs {
		code := req.Code
		if code != "" && req.Quantity > 1 {
			code = fmt.Sprintf("%s-%02d", req.Code, i+1)
		}
		specs[i] = domain.KegSpec{
			Brand:         brand,
			Code:          code,
			Capacity:      req.CapacityPerKeg,
			PurchasePrice: unitPrice,
			PurchaseDate:  req.PurchaseDate,
			CreatedBy:     actor,
		}
	}

	kegs, err := s.kegs.CreateKegs(ctx, specs)
	if err != nil {
		s.logger.Error("Falha ao criar barris no repositório.", err)
		s.notifyError(ctx, notify.OpPurchase, brand, "", "Falha ao registrar compra de barris.", err)
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Category:  notify.CategorySuccess,
		Operation: notify.OpPurchase,
		Brand:     brand,
		Message:   fmt.Sprintf("%d barril(is) de %s registrados.", len(kegs), brand),
		Details:   map[string]interface{}{"quantity": len(kegs), "unit_price": unitPrice.StringFixed(2)},
		Actor:     actor,
	})
	s.logger.Info("Compra de barris registrada com sucesso.", map[string]interface{}{
		"brand":      brand,
		"quantity":   len(kegs),
		"unit_price": unitPrice.StringFixed(2),
	})
	return kegs, nil
}

// ActivateKeg coloca um barril Novo em serviço (Novo -> Ativo). Sem data, usa o instante atual.
func (s *Service) ActivateKeg(ctx context.Context, id string, req domain.ActivationRequest) (domain.Keg, error) {
	date := s.now()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	var activated domain.Keg
	brand, err := s.mutateUnderBrandLock(ctx, id, func(txCtx context.Context, k domain.Keg) error {
		if k.Status != domain.KegStatusNovo {
			return apperror.NewConflictError(fmt.Sprintf("Apenas barris Novos podem ser ativados (status atual: %s).", k.Status))
		}
		status := domain.KegStatusAtivo
		updated, err := s.kegs.UpdateKeg(txCtx, k.ID, domain.KegPatch{
			Status:          &status,
			ActivationDate:  &date,
			ExpectedVersion: &k.Version,
		})
		if err != nil {
			return err
		}
		activated = updated
		return nil
	})
	if err != nil {
		s.logger.Warn("Falha ao ativar barril.", map[string]interface{}{"id": id, "error": err.Error()})
		s.notifyError(ctx, notify.OpActivation, brand, id, "Falha ao ativar barril.", err)
		return domain.Keg{}, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Category:  notify.CategorySuccess,
		Operation: notify.OpActivation,
		Brand:     activated.Brand,
		KegID:     activated.ID,
		Message:   fmt.Sprintf("Barril %s de %s ativado.", label(activated), activated.Brand),
		Actor:     audit.ActorFrom(ctx),
	})
	s.logger.Info("Barril ativado com sucesso.", map[string]interface{}{"id": activated.ID, "brand": activated.Brand})
	return activated, nil
}

// RegisterKegLoss marca o barril como Estragado e zera o volume. A movimentação Perda
// registra os litros informados pelo usuário, não o volume descartado.
func (s *Service) RegisterKegLoss(ctx context.Context, id string, req domain.LossRequest) (domain.Keg, domain.Movement, error) {
	if !req.Liters.IsPositive() {
		return domain.Keg{}, domain.Movement{}, apperror.NewInvalidVolumeError("os litros perdidos devem ser > 0")
	}
	if !domain.FitsLitersColumn(req.Liters) {
		return domain.Keg{}, domain.Movement{}, apperror.NewValidationError(litersPrecisionMessage("litros perdidos"))
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Perda registrada"
	}

	keg, movement, err := s.retire(ctx, id, domain.KegStatusEstragado, domain.MovementPerda, req.Liters, description)
	if err != nil {
		s.logger.Warn("Falha ao registrar perda.", map[string]interface{}{"id": id, "liters": req.Liters.String(), "error": err.Error()})
		s.notifyError(ctx, notify.OpLoss, keg.Brand, id, "Falha ao registrar perda do barril.", err)
		return domain.Keg{}, domain.Movement{}, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Category:  notify.CategorySuccess,
		Operation: notify.OpLoss,
		Brand:     keg.Brand,
		KegID:     keg.ID,
		Message:   fmt.Sprintf("Perda de %s L registrada no barril %s.", req.Liters.String(), label(keg)),
		Details:   map[string]interface{}{"liters": req.Liters.String(), "movement_id": movement.ID},
		Actor:     movement.CreatedBy,
	})
	return keg, movement, nil
}

// TransferKeg marca o barril como Transferido, zera o volume e anota o destino.
func (s *Service) TransferKeg(ctx context.Context, id string, req domain.TransferRequest) (domain.Keg, domain.Movement, error) {
	if !req.Liters.IsPositive() {
		return domain.Keg{}, domain.Movement{}, apperror.NewInvalidVolumeError("os litros transferidos devem ser > 0")
	}
	if !domain.FitsLitersColumn(req.Liters) {
		return domain.Keg{}, domain.Movement{}, apperror.NewValidationError(litersPrecisionMessage("litros transferidos"))
	}
	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return domain.Keg{}, domain.Movement{}, apperror.NewValidationError("O destino da transferência é obrigatório.")
	}

	keg, movement, err := s.retire(ctx, id, domain.KegStatusTransferido, domain.MovementTransferencia, req.Liters, "Transferência para "+destination)
	if err != nil {
		s.logger.Warn("Falha ao transferir barril.", map[string]interface{}{"id": id, "destination": destination, "error": err.Error()})
		s.notifyError(ctx, notify.OpTransfer, keg.Brand, id, "Falha ao transferir barril.", err)
		return domain.Keg{}, domain.Movement{}, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Category:  notify.CategorySuccess,
		Operation: notify.OpTransfer,
		Brand:     keg.Brand,
		KegID:     keg.ID,
		Message:   fmt.Sprintf("Barril %s transferido para %s.", label(keg), destination),
		Details:   map[string]interface{}{"liters": req.Liters.String(), "movement_id": movement.ID},
		Actor:     movement.CreatedBy,
	})
	return keg, movement, nil
}

// retire leva um barril Novo ou Ativo a um estado terminal com volume zero e acrescenta a movimentação.
func (s *Service) retire(ctx context.Context, id string, status domain.KegStatus, kind domain.MovementType, liters decimal.Decimal, description string) (domain.Keg, domain.Movement, error) {
	var (
		keg      domain.Keg
		movement domain.Movement
	)
	brand, err := s.mutateUnderBrandLock(ctx, id, func(txCtx context.Context, k domain.Keg) error {
		keg = k
		if k.Status.IsTerminal() {
			return apperror.NewConflictError(fmt.Sprintf("O barril já está em estado terminal (%s).", k.Status))
		}

		zero := decimal.Zero
		updated, err := s.kegs.UpdateKeg(txCtx, k.ID, domain.KegPatch{
			Status:          &status,
			CurrentLiters:   &zero,
			ExpectedVersion: &k.Version,
		})
		if err != nil {
			return err
		}
		keg = updated

		movement, err = s.movements.AppendMovement(txCtx, domain.Movement{
			KegID:       k.ID,
			Type:        kind,
			Liters:      liters,
			Date:        s.now(),
			Description: description,
			CreatedBy:   audit.ActorFrom(ctx),
		})
		if err != nil {
			s.logger.Error("Falha ao registrar movimentação após atualizar barril.", err)
			s.logger.Warn("Reconciliação necessária: barril atualizado sem movimentação.", map[string]interface{}{
				"keg_id": k.ID,
				"type":   string(kind),
				"liters": liters.String(),
				"step":   "append_movement",
			})
			return err
		}
		return nil
	})
	if err != nil {
		if keg.Brand == "" {
			keg.Brand = brand
		}
		return keg, domain.Movement{}, err
	}

	s.logger.Info("Barril retirado de serviço.", map[string]interface{}{
		"id":     keg.ID,
		"status": string(keg.Status),
		"type":   string(kind),
		"liters": liters.String(),
	})
	return keg, movement, nil
}

// mutateUnderBrandLock lê o barril, trava a marca e reexecuta a leitura dentro da unidade de trabalho,
// para que fn veja o estado mais recente. Devolve a marca lida, vazia só se o barril não pôde ser lido.
func (s *Service) mutateUnderBrandLock(ctx context.Context, id string, fn func(ctx context.Context, k domain.Keg) error) (string, error) {
	k, err := s.kegs.GetKeg(ctx, id)
	if err != nil {
		return "", err
	}

	unlock, err := s.locker.Lock(ctx, k.Brand)
	if err != nil {
		return k.Brand, apperror.NewInternalError(fmt.Sprintf("Falha ao obter lock da marca %s.", k.Brand), err)
	}
	defer unlock()

	return k.Brand, s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := s.kegs.GetKeg(txCtx, id)
		if err != nil {
			return err
		}
		return fn(txCtx, current)
	})
}

// litersPrecisionMessage descreve o limite de NUMERIC(10,3) para o campo informado.
func litersPrecisionMessage(field string) string {
	return fmt.Sprintf("O campo %s aceita no máximo %d casas decimais e deve ser menor que %s L.", field, domain.LitersScale, domain.MaxLiters.String())
}

// DeleteKeg remove um barril. O histórico de movimentações permanece.
func (s *Service) DeleteKeg(ctx context.Context, id string) error {
	s.logger.Debug("Iniciando exclusão de barril no serviço.", map[string]interface{}{"id": id})

	if err := s.kegs.DeleteKeg(ctx, id); err != nil {
		s.logger.Warn("Falha ao deletar barril.", map[string]interface{}{"id": id, "error": err.Error()})
		return err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Category:  notify.CategorySuccess,
		Operation: notify.OpDelete,
		KegID:     id,
		Message:   "Barril removido.",
		Actor:     audit.ActorFrom(ctx),
	})
	return nil
}

// GetKeg busca um barril pelo ID.
func (s *Service) GetKeg(ctx context.Context, id string) (domain.Keg, error) {
	return s.kegs.GetKeg(ctx, id)
}

// ListKegs lista barris com filtros e paginação.
func (s *Service) ListKegs(ctx context.Context, filter domain.KegFilter) ([]domain.Keg, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Status de barril inválido: %q.", string(filter.Status)))
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.kegs.ListKegs(ctx, filter)
}

// ListMovements lista movimentações do livro.
func (s *Service) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Tipo de movimentação inválido: %q.", string(filter.Type)))
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, apperror.NewValidationError("O início do período deve ser anterior ao fim.")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.movements.ListMovements(ctx, filter)
}

// BrandSummary devolve o estoque ativo agregado da marca.
func (s *Service) BrandSummary(ctx context.Context, brand string) (domain.BrandSummary, error) {
	if strings.TrimSpace(brand) == "" {
		return domain.BrandSummary{}, apperror.NewValidationError("A marca é obrigatória.")
	}
	return s.kegs.BrandSummary(ctx, brand)
}

func (s *Service) notifyError(ctx context.Context, op, brand, kegID, msg string, err error) {
	s.notifier.Notify(ctx, notify.Notification{
		Category:  notify.CategoryError,
		Operation: op,
		Brand:     brand,
		KegID:     kegID,
		Message:   msg,
		Details:   map[string]interface{}{"error": err.Error()},
		Actor:     audit.ActorFrom(ctx),
	})
}

func label(k domain.Keg) string {
	if k.Code != "" {
		return k.Code
	}
	return k.ID
}
