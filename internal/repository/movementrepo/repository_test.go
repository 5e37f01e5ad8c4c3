package movementrepo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochopp/internal/domain"
	"gochopp/internal/errors"
	"gochopp/internal/pkg/logger"
)

func newRepo(t *testing.T) (*MovementRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMovementRepository(db, time.Second, logger.Nop()), mock
}

func TestAppendMovement_Inserts(t *testing.T) {
	repo, mock := newRepo(t)
	date := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO keg_movements`).
		WithArgs(sqlmock.AnyArg(), "k1", "Venda", "20", date, "Consumo FIFO de venda externa (Brahma)", "alloc-1", "ana", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m, err := repo.AppendMovement(context.Background(), domain.Movement{
		KegID: "k1", Type: domain.MovementVenda, Liters: decimal.NewFromInt(20), Date: date,
		Description: "Consumo FIFO de venda externa (Brahma)", AllocationID: "alloc-1", CreatedBy: "ana",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMovement_NullAllocation(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`INSERT INTO keg_movements`).
		WithArgs(sqlmock.AnyArg(), "k1", "Perda", "10", sqlmock.AnyArg(), "", nil, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.AppendMovement(context.Background(), domain.Movement{
		KegID: "k1", Type: domain.MovementPerda, Liters: decimal.NewFromInt(10), Date: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMovement_RejectsNonPositiveLiters(t *testing.T) {
	repo, mock := newRepo(t)

	for _, liters := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		_, err := repo.AppendMovement(context.Background(), domain.Movement{KegID: "k1", Type: domain.MovementVenda, Liters: liters})
		var volErr *errors.InvalidVolumeError
		assert.ErrorAs(t, err, &volErr)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMovement_RejectsUnknownType(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.AppendMovement(context.Background(), domain.Movement{KegID: "k1", Type: "Doação", Liters: decimal.NewFromInt(1)})
	var vErr *errors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestListMovements_FiltersAndOrder(t *testing.T) {
	repo, mock := newRepo(t)
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	d := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "keg_id", "type", "liters", "date", "description", "allocation_id", "created_by", "created_at"}).
		AddRow("m2", "k1", "Venda", "5", d, "Consumo FIFO de venda externa (Brahma)", "a1", "ana", d).
		AddRow("m1", "k1", "Venda", "20", from, "Consumo FIFO de venda externa (Brahma)", "", "ana", from)

	mock.ExpectQuery(`WHERE keg_id = \$1 AND type = \$2 AND date >= \$3 ORDER BY date DESC, created_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("k1", "Venda", from, 10, 10).
		WillReturnRows(rows)

	got, err := repo.ListMovements(context.Background(), domain.MovementFilter{
		KegID: "k1", Type: domain.MovementVenda, From: &from, Page: 2, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, "a1", got[0].AllocationID)
	assert.True(t, got[1].Liters.Equal(decimal.NewFromInt(20)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
