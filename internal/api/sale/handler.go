package sale

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"gochopp/internal/domain"
	apperror "gochopp/internal/errors"
	"gochopp/internal/pkg/logger"
)

// AllocationService define o contrato que o Handler espera do motor de alocação.
type AllocationService interface {
	ProcessExternalSale(ctx context.Context, req domain.ExternalSaleRequest) (domain.AllocationResult, error)
}

// Handler expõe a alocação FIFO de vendas externas.
type Handler struct {
	Service  AllocationService
	Logger   logger.Logger
	validate *validator.Validate
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc AllocationService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log, validate: validator.New()}
}

// ExternalSaleHandler lida com a requisição POST /v1/sales/external.
// Atendimento parcial responde 200 com outcome=partial e shortfall_liters > 0.
// @Summary Aloca venda externa (FIFO)
// @Description Drena os barris ativos da marca do mais antigo para o mais novo.
// @Tags sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sale body domain.ExternalSaleRequest true "Marca, litros e data da venda"
// @Success 200 {object} domain.AllocationResult "Venda alocada (total ou parcial)"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido ou volume fora da escala de 3 casas"
// @Failure 409 {object} domain.ErrorResponse "Conflito de concorrência persistente"
// @Failure 422 {object} domain.ErrorResponse "Nenhum barril ativo para a marca"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /v1/sales/external [post]
func (h *Handler) ExternalSaleHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ExternalSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, apperror.NewValidationError(fmt.Sprintf("Payload inválido: %s", err.Error())))
		return
	}

	result, err := h.Service.ProcessExternalSale(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Logger.Info("Venda externa processada.", map[string]interface{}{
		"allocation_id": result.AllocationID,
		"brand":         result.Brand,
		"outcome":       string(result.Outcome),
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Logger.Error("Falha ao codificar JSON de resposta", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
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
