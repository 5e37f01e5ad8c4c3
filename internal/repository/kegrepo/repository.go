package kegrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gochopp/internal/domain"
	"gochopp/internal/errors"
	"gochopp/internal/pkg/cache"
	"gochopp/internal/pkg/database"
	"gochopp/internal/pkg/logger"
)

// Define a chave de cache para o resumo por marca.
const brandSummaryCacheKey = "brand-summary:%s"

const kegColumns = `id, seq, brand, code, capacity, current_liters, purchase_price, purchase_date,
        activation_date, status, version, created_by, created_at, updated_at`

// KegRepository é o Registro de Barris sobre PostgreSQL.
type KegRepository struct {
	DB        *sql.DB
	Cache     cache.Client // opcional; nil desliga o cache-aside do resumo
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewKegRepository cria e retorna uma nova instância do Registro de Barris.
func NewKegRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *KegRepository {
	return &KegRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanKeg(row rowScanner) (domain.Keg, error) {
	var k domain.Keg
	var activation sql.NullTime
	err := row.Scan(
		&k.ID, &k.Seq, &k.Brand, &k.Code, &k.Capacity, &k.CurrentLiters, &k.PurchasePrice, &k.PurchaseDate,
		&activation, &k.Status, &k.Version, &k.CreatedBy, &k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		return domain.Keg{}, err
	}
	if activation.Valid {
		t := activation.Time
		k.ActivationDate = &t
	}
	return k, nil
}

// CreateKegs insere um lote de barris em status Novo, cheios, numa única transação.
func (r *KegRepository) CreateKegs(ctx context.Context, specs []domain.KegSpec) ([]domain.Keg, error) {
	r.logger.Debug("Iniciando CreateKegs no repositório.", map[string]interface{}{"quantity": len(specs)})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        INSERT INTO kegs (id, brand, code, capacity, current_liters, purchase_price, purchase_date,
                          status, version, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10, $10)
        RETURNING ` + kegColumns

	var created []domain.Keg
	err := database.NewTxManager(r.DB).WithinTx(ctxTimeout, func(txCtx context.Context) error {
		conn := database.Conn(txCtx, r.DB)
		now := time.Now().UTC()
		for _, spec := range specs {
			k, err := scanKeg(conn.QueryRowContext(txCtx, query,
				uuid.New().String(), spec.Brand, spec.Code, spec.Capacity, spec.Capacity, spec.PurchasePrice,
				spec.PurchaseDate, domain.KegStatusNovo, spec.CreatedBy, now,
			))
			if err != nil {
				r.logger.Error("Falha ao inserir barril no DB.", err)
				return errors.NewDBError("Falha ao criar barril", err)
			}
			created = append(created, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.invalidateSummary(ctx, brandsOf(created)...)
	r.logger.Info("Barris criados com sucesso.", map[string]interface{}{"quantity": len(created)})
	return created, nil
}

// GetKeg busca um barril pelo ID.
func (r *KegRepository) GetKeg(ctx context.Context, id string) (domain.Keg, error) {
	r.logger.Debug("Iniciando GetKeg no repositório.", map[string]interface{}{"id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + kegColumns + ` FROM kegs WHERE id = $1`

	k, err := scanKeg(database.Conn(ctx, r.DB).QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		r.logger.Info("Barril não encontrado.", map[string]interface{}{"id": id})
		return domain.Keg{}, errors.NewNotFoundError(fmt.Sprintf("Barril com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar barril no DB.", err)
		return domain.Keg{}, errors.NewDBError("Falha ao buscar barril", err)
	}
	return k, nil
}

// ListActiveKegsForBrand devolve os barris Ativos com volume da marca em ordem FIFO:
// data de ativação ascendente (sem data = epoch, drenados primeiro) e ordem de inserção no empate.
// Dentro de uma transação as linhas ficam bloqueadas (FOR UPDATE) até o commit.
func (r *KegRepository) ListActiveKegsForBrand(ctx context.Context, brand string) ([]domain.Keg, error) {
	r.logger.Debug("Iniciando ListActiveKegsForBrand no repositório.", map[string]interface{}{"brand": brand})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + kegColumns + `
        FROM kegs
        WHERE brand = $1 AND status = $2 AND current_liters > 0
        ORDER BY COALESCE(activation_date, 'epoch'::timestamptz) ASC, seq ASC`
	if database.InTx(ctx) {
		query += ` FOR UPDATE`
	}

	rows, err := database.Conn(ctx, r.DB).QueryContext(ctxTimeout, query, brand, domain.KegStatusAtivo)
	if err != nil {
		r.logger.Error("Falha ao executar ListActiveKegsForBrand query.", err)
		return nil, errors.NewDBError("Falha ao buscar barris ativos", err)
	}
	defer rows.Close()

	kegs, err := r.collect(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Barris ativos encontrados.", map[string]interface{}{"brand": brand, "count": len(kegs)})
	return kegs, nil
}

// ListKegs lista barris com filtros opcionais de marca e status, paginados pela ordem de inserção.
func (r *KegRepository) ListKegs(ctx context.Context, filter domain.KegFilter) ([]domain.Keg, error) {
	r.logger.Debug("Iniciando ListKegs no repositório.", map[string]interface{}{"brand": filter.Brand, "status": filter.Status})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		conds []string
		args  []interface{}
	)
	if filter.Brand != "" {
		args = append(args, filter.Brand)
		conds = append(conds, fmt.Sprintf("brand = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + kegColumns + ` FROM kegs`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY seq ASC`
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := database.Conn(ctx, r.DB).QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao executar ListKegs query.", err)
		return nil, errors.NewDBError("Falha ao listar barris", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *KegRepository) collect(rows *sql.Rows) ([]domain.Keg, error) {
	kegs := []domain.Keg{}
	for rows.Next() {
		k, err := scanKeg(rows)
		if err != nil {
			r.logger.Error("Falha ao mapear barril na iteração.", err)
			return nil, errors.NewDBError("Falha ao mapear barris do DB", err)
		}
		kegs = append(kegs, k)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Erro após iteração das linhas de barris.", err)
		return nil, errors.NewDBError("Erro após iteração de barris", err)
	}
	return kegs, nil
}

// UpdateKeg aplica uma atualização parcial. Com ExpectedVersion o UPDATE é condicional (OCC)
// e uma versão desatualizada resulta em ConflictError.
func (r *KegRepository) UpdateKeg(ctx context.Context, id string, patch domain.KegPatch) (domain.Keg, error) {
	r.logger.Debug("Iniciando UpdateKeg no repositório.", map[string]interface{}{"id": id})

	var (
		sets []string
		args []interface{}
	)
	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.CurrentLiters != nil {
		args = append(args, *patch.CurrentLiters)
		sets = append(sets, fmt.Sprintf("current_liters = $%d", len(args)))
	}
	if patch.ActivationDate != nil {
		args = append(args, *patch.ActivationDate)
		sets = append(sets, fmt.Sprintf("activation_date = $%d", len(args)))
	}
	if len(sets) == 0 {
		return domain.Keg{}, errors.NewValidationError("Nenhum campo informado para atualização do barril.")
	}

	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)), "version = version + 1")

	args = append(args, id)
	where := fmt.Sprintf("id = $%d", len(args))
	if patch.ExpectedVersion != nil {
		args = append(args, *patch.ExpectedVersion)
		where += fmt.Sprintf(" AND version = $%d", len(args))
	}

	query := `UPDATE kegs SET ` + strings.Join(sets, ", ") + ` WHERE ` + where + ` RETURNING ` + kegColumns

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	k, err := scanKeg(database.Conn(ctx, r.DB).QueryRowContext(ctxTimeout, query, args...))
	if err == sql.ErrNoRows {
		if patch.ExpectedVersion == nil {
			r.logger.Info("Barril não encontrado para atualização.", map[string]interface{}{"id": id})
			return domain.Keg{}, errors.NewNotFoundError(fmt.Sprintf("Barril com ID %s não encontrado para atualização.", id))
		}
		// Distingue barril inexistente de versão desatualizada.
		if _, getErr := r.GetKeg(ctx, id); getErr != nil {
			return domain.Keg{}, getErr
		}
		r.logger.Warn("Falha no controle de concorrência otimista (OCC). Versão do barril desatualizada.", map[string]interface{}{
			"id":               id,
			"expected_version": *patch.ExpectedVersion,
		})
		return domain.Keg{}, errors.NewConflictError("O barril foi modificado por outra operação. Tente novamente.")
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar barril no DB.", err)
		return domain.Keg{}, errors.NewDBError("Falha ao atualizar barril", err)
	}

	r.invalidateSummary(ctx, k.Brand)
	r.logger.Debug("Barril atualizado.", map[string]interface{}{
		"id":             k.ID,
		"status":         k.Status,
		"current_liters": k.CurrentLiters.String(),
		"version":        k.Version,
	})
	return k, nil
}

// DeleteKeg remove um barril pelo ID. Movimentações históricas não são alteradas.
func (r *KegRepository) DeleteKeg(ctx context.Context, id string) error {
	r.logger.Debug("Iniciando DeleteKeg no repositório.", map[string]interface{}{"id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var brand string
	err := database.Conn(ctx, r.DB).QueryRowContext(ctxTimeout, `DELETE FROM kegs WHERE id = $1 RETURNING brand`, id).Scan(&brand)
	if err == sql.ErrNoRows {
		r.logger.Info("Barril não encontrado para exclusão.", map[string]interface{}{"id": id})
		return errors.NewNotFoundError(fmt.Sprintf("Barril com ID %s não encontrado para exclusão.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao deletar barril do DB.", err)
		return errors.NewDBError("Falha ao deletar barril", err)
	}

	r.invalidateSummary(ctx, brand)
	r.logger.Info("Barril deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// BrandSummary agrega o estoque ativo da marca, usando a estratégia Cache-Aside.
func (r *KegRepository) BrandSummary(ctx context.Context, brand string) (domain.BrandSummary, error) {
	key := fmt.Sprintf(brandSummaryCacheKey, brand)

	if r.Cache != nil {
		if cached, err := r.Cache.Get(ctx, key); err == nil {
			var summary domain.BrandSummary
			if json.Unmarshal([]byte(cached), &summary) == nil {
				return summary, nil
			}
		} else if err != cache.ErrCacheMiss {
			r.logger.Warn("Falha ao ler resumo do cache Redis.", map[string]interface{}{"brand": brand, "error": err.Error()})
		}
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT COUNT(*), COALESCE(SUM(current_liters), 0), MIN(activation_date)
        FROM kegs
        WHERE brand = $1 AND status = $2 AND current_liters > 0`

	summary := domain.BrandSummary{Brand: brand}
	var (
		liters decimal.Decimal
		oldest sql.NullTime
	)
	err := database.Conn(ctx, r.DB).QueryRowContext(ctxTimeout, query, brand, domain.KegStatusAtivo).
		Scan(&summary.ActiveKegs, &liters, &oldest)
	if err != nil {
		r.logger.Error("Falha ao calcular resumo da marca.", err)
		return domain.BrandSummary{}, errors.NewDBError("Falha ao calcular resumo da marca", err)
	}
	summary.AvailableLiters = liters
	if oldest.Valid {
		t := oldest.Time
		summary.OldestActivation = &t
	}

	if r.Cache != nil {
		if payload, marshalErr := json.Marshal(summary); marshalErr == nil {
			if setErr := r.Cache.Set(ctx, key, payload, r.CacheTTL); setErr != nil {
				r.logger.Warn("Falha ao gravar resumo no cache Redis.", map[string]interface{}{"brand": brand, "error": setErr.Error()})
			}
		}
	}
	return summary, nil
}

func (r *KegRepository) invalidateSummary(ctx context.Context, brands ...string) {
	if r.Cache == nil || len(brands) == 0 {
		return
	}
	keys := make([]string, 0, len(brands))
	for _, b := range brands {
		keys = append(keys, fmt.Sprintf(brandSummaryCacheKey, b))
	}
	if err := r.Cache.Delete(ctx, keys...); err != nil {
		r.logger.Warn("Falha ao invalidar resumo no cache Redis.", map[string]interface{}{"brands": brands, "error": err.Error()})
	}
}

func brandsOf(kegs []domain.Keg) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range kegs {
		if !seen[k.Brand] {
			seen[k.Brand] = true
			out = append(out, k.Brand)
		}
	}
	return out
}
