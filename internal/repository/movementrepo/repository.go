package movementrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gochopp/internal/domain"
	"gochopp/internal/errors"
	"gochopp/internal/pkg/database"
	"gochopp/internal/pkg/logger"
)

const movementColumns = `id, keg_id, type, liters, date, description, COALESCE(allocation_id::text, ''), created_by, created_at`

// MovementRepository é o Livro de Movimentações sobre PostgreSQL. Só acrescenta, nunca altera.
type MovementRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewMovementRepository cria e retorna uma nova instância do Livro de Movimentações.
func NewMovementRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *MovementRepository {
	return &MovementRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// AppendMovement grava uma movimentação. Litros não positivos são rejeitados com InvalidVolumeError.
func (r *MovementRepository) AppendMovement(ctx context.Context, m domain.Movement) (domain.Movement, error) {
	if !m.Liters.IsPositive() {
		r.logger.Warn("Tentativa de registrar movimentação com volume não positivo.", map[string]interface{}{
			"keg_id": m.KegID,
			"liters": m.Liters.String(),
		})
		return domain.Movement{}, errors.NewInvalidVolumeError(fmt.Sprintf("a movimentação deve ter litros > 0 (recebido %s)", m.Liters.String()))
	}
	if !m.Type.Valid() {
		return domain.Movement{}, errors.NewValidationError(fmt.Sprintf("Tipo de movimentação inválido: %q.", string(m.Type)))
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()

	var allocationID interface{}
	if m.AllocationID != "" {
		allocationID = m.AllocationID
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        INSERT INTO keg_movements (id, keg_id, type, liters, date, description, allocation_id, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := database.Conn(ctx, r.DB).ExecContext(ctxTimeout, query,
		m.ID, m.KegID, m.Type, m.Liters, m.Date, m.Description, allocationID, m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir movimentação no DB.", err)
		return domain.Movement{}, errors.NewDBError("Falha ao registrar movimentação", err)
	}

	r.logger.Debug("Movimentação registrada.", map[string]interface{}{
		"id":     m.ID,
		"keg_id": m.KegID,
		"type":   string(m.Type),
		"liters": m.Liters.String(),
	})
	return m, nil
}

// ListMovements lista movimentações da mais recente para a mais antiga.
func (r *MovementRepository) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	r.logger.Debug("Iniciando ListMovements no repositório.", map[string]interface{}{"keg_id": filter.KegID, "type": string(filter.Type)})

	var (
		conds []string
		args  []interface{}
	)
	if filter.KegID != "" {
		args = append(args, filter.KegID)
		conds = append(conds, fmt.Sprintf("keg_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("date < $%d", len(args)))
	}

	query := `SELECT ` + movementColumns + ` FROM keg_movements`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := database.Conn(ctx, r.DB).QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao executar ListMovements query.", err)
		return nil, errors.NewDBError("Falha ao listar movimentações", err)
	}
	defer rows.Close()

	movements := []domain.Movement{}
	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(&m.ID, &m.KegID, &m.Type, &m.Liters, &m.Date, &m.Description, &m.AllocationID, &m.CreatedBy, &m.CreatedAt); err != nil {
			r.logger.Error("Falha ao mapear movimentação na iteração.", err)
			return nil, errors.NewDBError("Falha ao mapear movimentações do DB", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Erro após iteração das linhas de movimentações.", err)
		return nil, errors.NewDBError("Erro após iteração de movimentações", err)
	}
	return movements, nil
}
