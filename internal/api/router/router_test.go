package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochopp/internal/api/keg"
	"gochopp/internal/api/sale"
	"gochopp/internal/domain"
	"gochopp/internal/pkg/lock"
	"gochopp/internal/pkg/logger"
	"gochopp/internal/pkg/notify"
	"gochopp/internal/pkg/token"
	"gochopp/internal/repository/memory"
	"gochopp/internal/service/allocationservice"
	"gochopp/internal/service/kegservice"
)

type api struct {
	t       *testing.T
	handler http.Handler
	tokens  *token.Service
	kegs    *memory.KegStore
}

func newAPI(t *testing.T) *api {
	kegStore := memory.NewKegStore()
	movementStore := memory.NewMovementStore()
	locker := lock.NewMemoryLocker()
	log := logger.Nop()
	notifier := notify.NewLogNotifier(log)

	kegSvc := kegservice.NewService(kegStore, movementStore, memory.Transactor{}, locker, notifier, log)
	allocSvc := allocationservice.NewService(kegStore, movementStore, memory.Transactor{}, locker, notifier, log, 3)
	tokens := token.NewService("segredo", time.Hour)

	return &api{
		t:      t,
		tokens: tokens,
		kegs:   kegStore,
		handler: NewRouter(Deps{
			KegHandler:  keg.NewHandler(kegSvc, log),
			SaleHandler: sale.NewHandler(allocSvc, log),
			TokenSvc:    tokens,
			Logger:      log,
		}),
	}
}

func (a *api) do(method, path string, role domain.UserRole, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		signed, err := a.tokens.GenerateToken("ana", role)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestV1RequiresToken(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/v1/kegs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPurchaseActivateAndSellFlow(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/kegs/purchases", domain.RoleOperator, map[string]interface{}{
		"brand": "Brahma", "capacity_per_keg": "50", "quantity": 2, "total_price": "600", "purchase_date": "2026-05-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var kegs []domain.Keg
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&kegs))
	require.Len(t, kegs, 2)
	assert.True(t, kegs[0].PurchasePrice.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "ana", kegs[0].CreatedBy)

	rec = a.do(http.MethodPost, "/v1/kegs/"+kegs[0].ID+"/activate", domain.RoleOperator, map[string]interface{}{"date": "2024-01-01T00:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/v1/kegs/"+kegs[1].ID+"/activate", domain.RoleOperator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/sales/external", domain.RoleOperator, map[string]interface{}{"brand": "Brahma", "total_liters": "60"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result domain.AllocationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, domain.OutcomeFulfilled, result.Outcome)
	require.Len(t, result.Consumptions, 2)
	assert.Equal(t, kegs[0].ID, result.Consumptions[0].KegID)
	assert.Equal(t, domain.KegStatusEsgotado, result.Consumptions[0].Status)

	rec = a.do(http.MethodGet, "/v1/brands/Brahma/summary", domain.RoleViewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.BrandSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, 1, summary.ActiveKegs)
	assert.True(t, summary.AvailableLiters.Equal(decimal.NewFromInt(40)))

	rec = a.do(http.MethodGet, "/v1/movements?type=Venda&keg_id="+kegs[1].ID, domain.RoleViewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var movements []domain.Movement
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&movements))
	require.Len(t, movements, 1)
	assert.True(t, movements[0].Liters.Equal(decimal.NewFromInt(10)))
}

func TestExternalSale_NoEligibleKegsIs422(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/sales/external", domain.RoleOperator, map[string]interface{}{"brand": "Heineken", "total_liters": "10"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NO_ELIGIBLE_KEGS", body.Category)
}

func TestExternalSale_PartialIs200(t *testing.T) {
	a := newAPI(t)
	created, err := a.kegs.CreateKegs(t.Context(), []domain.KegSpec{{Brand: "Brahma", Capacity: decimal.NewFromInt(15)}})
	require.NoError(t, err)
	status := domain.KegStatusAtivo
	_, err = a.kegs.UpdateKeg(t.Context(), created[0].ID, domain.KegPatch{Status: &status})
	require.NoError(t, err)

	rec := a.do(http.MethodPost, "/v1/sales/external", domain.RoleOperator, map[string]interface{}{"brand": "Brahma", "total_liters": "40"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.AllocationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, domain.OutcomePartial, result.Outcome)
	assert.True(t, result.Shortfall.Equal(decimal.NewFromInt(25)))
}

func TestLossAndTransferRoutes(t *testing.T) {
	a := newAPI(t)
	created, err := a.kegs.CreateKegs(t.Context(), []domain.KegSpec{
		{Brand: "Brahma", Capacity: decimal.NewFromInt(30)},
		{Brand: "Brahma", Capacity: decimal.NewFromInt(30)},
	})
	require.NoError(t, err)

	rec := a.do(http.MethodPost, "/v1/kegs/"+created[0].ID+"/loss", domain.RoleOperator, map[string]interface{}{"liters": "10"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var loss keg.RetirementResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loss))
	assert.Equal(t, domain.KegStatusEstragado, loss.Keg.Status)
	assert.True(t, loss.Keg.CurrentLiters.IsZero())
	assert.True(t, loss.Movement.Liters.Equal(decimal.NewFromInt(10)))

	rec = a.do(http.MethodPost, "/v1/kegs/"+created[0].ID+"/loss", domain.RoleOperator, map[string]interface{}{"liters": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/kegs/"+created[1].ID+"/transfer", domain.RoleOperator, map[string]interface{}{"liters": "30"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/kegs/"+created[1].ID+"/transfer", domain.RoleOperator, map[string]interface{}{"liters": "30", "destination": "Filial Centro"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var transfer keg.RetirementResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&transfer))
	assert.Equal(t, "Transferência para Filial Centro", transfer.Movement.Description)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	a := newAPI(t)
	created, err := a.kegs.CreateKegs(t.Context(), []domain.KegSpec{{Brand: "Brahma", Capacity: decimal.NewFromInt(30)}})
	require.NoError(t, err)

	rec := a.do(http.MethodDelete, "/v1/kegs/"+created[0].ID, domain.RoleOperator, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodDelete, "/v1/kegs/"+created[0].ID, domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/v1/kegs/"+created[0].ID, domain.RoleViewer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListValidation(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/kegs?page=0", domain.RoleViewer, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/kegs?status=Vazio", domain.RoleViewer, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/movements?from=ontem", domain.RoleViewer, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/kegs?brand=Brahma&limit=5", domain.RoleViewer, nil).Code)
}

func TestPurchaseValidation(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/kegs/purchases", domain.RoleOperator, map[string]interface{}{
		"brand": "Brahma", "capacity_per_keg": "50", "quantity": 0, "total_price": "600", "purchase_date": "2026-05-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/kegs/purchases", bytes.NewBufferString("{not json"))
	signed, _ := a.tokens.GenerateToken("ana", domain.RoleOperator)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExternalSale_RejectsMissingOrInvalidVolume(t *testing.T) {
	a := newAPI(t)
	created, err := a.kegs.CreateKegs(t.Context(), []domain.KegSpec{{Brand: "Brahma", Capacity: decimal.NewFromInt(50)}})
	require.NoError(t, err)
	status := domain.KegStatusAtivo
	_, err = a.kegs.UpdateKeg(t.Context(), created[0].ID, domain.KegPatch{Status: &status})
	require.NoError(t, err)

	bodies := map[string]map[string]interface{}{
		"sem litros":       {"brand": "Brahma"},
		"negativo":         {"brand": "Brahma", "total_liters": "-5"},
		"quatro casas":     {"brand": "Brahma", "total_liters": "20.0004"},
		"abaixo da escala": {"brand": "Brahma", "total_liters": "0.0004"},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/v1/sales/external", domain.RoleOperator, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	k, err := a.kegs.GetKeg(t.Context(), created[0].ID)
	require.NoError(t, err)
	assert.True(t, k.CurrentLiters.Equal(decimal.NewFromInt(50)))
}
