package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochopp/internal/pkg/database"
)

func TestWithinTx_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE kegs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mgr := database.NewTxManager(db)
	err = mgr.WithinTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, database.InTx(ctx))
		_, execErr := database.Conn(ctx, db).ExecContext(ctx, "UPDATE kegs SET version = version + 1")
		return execErr
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("falha no segundo barril")
	mgr := database.NewTxManager(db)
	err = mgr.WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_NestedReusesOuter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	mgr := database.NewTxManager(db)
	err = mgr.WithinTx(context.Background(), func(ctx context.Context) error {
		return mgr.WithinTx(ctx, func(inner context.Context) error {
			assert.True(t, database.InTx(inner))
			return nil
		})
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConn_WithoutTxReturnsPool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.False(t, database.InTx(context.Background()))
	assert.Equal(t, db, database.Conn(context.Background(), db))
}
