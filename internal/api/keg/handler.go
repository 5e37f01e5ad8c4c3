package keg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"gochopp/internal/domain"
	apperror "gochopp/internal/errors"
	"gochopp/internal/pkg/logger"
)

// KegService define o contrato que o Handler espera da camada de Serviço.
type KegService interface {
	RegisterKegPurchase(ctx context.Context, req domain.PurchaseRequest) ([]domain.Keg, error)
	ActivateKeg(ctx context.Context, id string, req domain.ActivationRequest) (domain.Keg, error)
	RegisterKegLoss(ctx context.Context, id string, req domain.LossRequest) (domain.Keg, domain.Movement, error)
	TransferKeg(ctx context.Context, id string, req domain.TransferRequest) (domain.Keg, domain.Movement, error)
	DeleteKeg(ctx context.Context, id string) error
	GetKeg(ctx context.Context, id string) (domain.Keg, error)
	ListKegs(ctx context.Context, filter domain.KegFilter) ([]domain.Keg, error)
	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error)
	BrandSummary(ctx context.Context, brand string) (domain.BrandSummary, error)
}

// RetirementResponse é devolvido por perda e transferência.
type RetirementResponse struct {
	Keg      domain.Keg      `json:"keg"`
	Movement domain.Movement `json:"movement"`
}

// Handler agrupa os handlers de barris, movimentações e resumo por marca.
type Handler struct {
	Service  KegService
	Logger   logger.Logger
	validate *validator.Validate
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc KegService, log logger.Logger) *Handler {
	return &Handler{
		Service:  svc,
		Logger:   log,
		validate: validator.New(),
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
			}
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}

// decode lê o JSON do corpo e aplica as tags de validação.
func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperror.NewValidationError(fmt.Sprintf("Payload inválido: %s", err.Error()))
	}
	return nil
}

// PurchaseHandler lida com a requisição POST /v1/kegs/purchases.
// @Summary Registra compra de barris
// @Description Cria um barril Novo por unidade comprada, com o preço total dividido igualmente.
// @Tags kegs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param purchase body domain.PurchaseRequest true "Dados da compra"
// @Success 201 {array} domain.Keg "Barris criados"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /v1/kegs/purchases [post]
func (h *Handler) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseRequest
	if err := h.decode(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}

	kegs, err := h.Service.RegisterKegPurchase(r.Context(), req)
	h.handleServiceResponse(w, r, kegs, err, http.StatusCreated)
}

// ListKegsHandler lida com a requisição GET /v1/kegs.
// @Summary Lista barris
// @Tags kegs
// @Produce json
// @Security BearerAuth
// @Param brand query string false "Marca (igualdade exata)"
// @Param status query string false "Status" Enums(Novo, Ativo, Esgotado, Estragado, Transferido)
// @Param page query int false "Página" default(1)
// @Param limit query int false "Itens por página" default(20)
// @Success 200 {array} domain.Keg
// @Failure 400 {object} domain.ErrorResponse "Filtro inválido"
// @Router /v1/kegs [get]
func (h *Handler) ListKegsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, err := pagination(q.Get("page"), q.Get("limit"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	kegs, err := h.Service.ListKegs(r.Context(), domain.KegFilter{
		Brand:  q.Get("brand"),
		Status: domain.KegStatus(q.Get("status")),
		Page:   page,
		Limit:  limit,
	})
	h.handleServiceResponse(w, r, kegs, err, http.StatusOK)
}

// GetKegHandler lida com a requisição GET /v1/kegs/{id}.
// @Summary Busca barril por ID
// @Tags kegs
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do barril"
// @Success 200 {object} domain.Keg
// @Failure 404 {object} domain.ErrorResponse "Barril não encontrado"
// @Router /v1/kegs/{id} [get]
func (h *Handler) GetKegHandler(w http.ResponseWriter, r *http.Request) {
	k, err := h.Service.GetKeg(r.Context(), chi.URLParam(r, "id"))
	h.handleServiceResponse(w, r, k, err, http.StatusOK)
}

// ActivateHandler lida com a requisição POST /v1/kegs/{id}/activate.
// @Summary Ativa um barril Novo
// @Description Sem data no corpo, usa o instante atual como data de ativação.
// @Tags kegs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do barril"
// @Param activation body domain.ActivationRequest false "Data de ativação"
// @Success 200 {object} domain.Keg
// @Failure 404 {object} domain.ErrorResponse "Barril não encontrado"
// @Failure 409 {object} domain.ErrorResponse "Barril não está Novo"
// @Router /v1/kegs/{id}/activate [post]
func (h *Handler) ActivateHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ActivationRequest
	// Corpo vazio é aceito: ativa com a data atual.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusOK)
		return
	}

	k, err := h.Service.ActivateKeg(r.Context(), chi.URLParam(r, "id"), req)
	h.handleServiceResponse(w, r, k, err, http.StatusOK)
}

// LossHandler lida com a requisição POST /v1/kegs/{id}/loss.
// @Summary Registra perda
// @Description Marca o barril como Estragado com volume zero e grava uma movimentação Perda com os litros informados.
// @Tags kegs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do barril"
// @Param loss body domain.LossRequest true "Litros perdidos"
// @Success 201 {object} RetirementResponse
// @Failure 400 {object} domain.ErrorResponse "Volume inválido"
// @Failure 404 {object} domain.ErrorResponse "Barril não encontrado"
// @Failure 409 {object} domain.ErrorResponse "Barril em estado terminal"
// @Router /v1/kegs/{id}/loss [post]
func (h *Handler) LossHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LossRequest
	if err := h.decode(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}

	k, mv, err := h.Service.RegisterKegLoss(r.Context(), chi.URLParam(r, "id"), req)
	h.handleServiceResponse(w, r, RetirementResponse{Keg: k, Movement: mv}, err, http.StatusCreated)
}

// TransferHandler lida com a requisição POST /v1/kegs/{id}/transfer.
// @Summary Transfere barril
// @Tags kegs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do barril"
// @Param transfer body domain.TransferRequest true "Litros e destino"
// @Success 201 {object} RetirementResponse
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Barril não encontrado"
// @Failure 409 {object} domain.ErrorResponse "Barril em estado terminal"
// @Router /v1/kegs/{id}/transfer [post]
func (h *Handler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferRequest
	if err := h.decode(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}

	k, mv, err := h.Service.TransferKeg(r.Context(), chi.URLParam(r, "id"), req)
	h.handleServiceResponse(w, r, RetirementResponse{Keg: k, Movement: mv}, err, http.StatusCreated)
}

// DeleteHandler lida com a requisição DELETE /v1/kegs/{id}.
// @Summary Remove barril (admin)
// @Tags kegs
// @Security BearerAuth
// @Param id path string true "ID do barril"
// @Success 204
// @Failure 403 {object} domain.ErrorResponse "Papel sem permissão"
// @Failure 404 {object} domain.ErrorResponse "Barril não encontrado"
// @Router /v1/kegs/{id} [delete]
func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteKeg(r.Context(), chi.URLParam(r, "id"))
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}

// BrandSummaryHandler lida com a requisição GET /v1/brands/{brand}/summary.
// @Summary Resumo do estoque ativo da marca
// @Tags brands
// @Produce json
// @Security BearerAuth
// @Param brand path string true "Marca"
// @Success 200 {object} domain.BrandSummary
// @Router /v1/brands/{brand}/summary [get]
func (h *Handler) BrandSummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.BrandSummary(r.Context(), chi.URLParam(r, "brand"))
	h.handleServiceResponse(w, r, summary, err, http.StatusOK)
}

// ListMovementsHandler lida com a requisição GET /v1/movements.
// @Summary Lista movimentações
// @Description Da mais recente para a mais antiga. from é inclusivo e to exclusivo (RFC3339).
// @Tags movements
// @Produce json
// @Security BearerAuth
// @Param keg_id query string false "ID do barril"
// @Param type query string false "Tipo" Enums(Venda, Perda, Transferência)
// @Param from query string false "Início (RFC3339)"
// @Param to query string false "Fim (RFC3339)"
// @Param page query int false "Página" default(1)
// @Param limit query int false "Itens por página" default(50)
// @Success 200 {array} domain.Movement
// @Failure 400 {object} domain.ErrorResponse "Filtro inválido"
// @Router /v1/movements [get]
func (h *Handler) ListMovementsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, err := pagination(q.Get("page"), q.Get("limit"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	from, err := parseTime("from", q.Get("from"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	to, err := parseTime("to", q.Get("to"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	movements, err := h.Service.ListMovements(r.Context(), domain.MovementFilter{
		KegID: q.Get("keg_id"),
		Type:  domain.MovementType(q.Get("type")),
		From:  from,
		To:    to,
		Page:  page,
		Limit: limit,
	})
	h.handleServiceResponse(w, r, movements, err, http.StatusOK)
}

func pagination(pageParam, limitParam string) (int, int, error) {
	page, limit := 0, 0
	var err error
	if pageParam != "" {
		if page, err = strconv.Atoi(pageParam); err != nil || page < 1 {
			return 0, 0, apperror.NewValidationError("Parâmetro page deve ser um inteiro >= 1.")
		}
	}
	if limitParam != "" {
		if limit, err = strconv.Atoi(limitParam); err != nil || limit < 1 {
			return 0, 0, apperror.NewValidationError("Parâmetro limit deve ser um inteiro >= 1.")
		}
	}
	return page, limit, nil
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperror.NewValidationError(fmt.Sprintf("Parâmetro %s deve estar em RFC3339.", name))
	}
	return &t, nil
}
