package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fintrack/backend/internal/models"
)

func TestPostgresTransactionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db)

	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs("Salary", sqlmock.AnyArg(), "receita", sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	transaction := &models.Transaction{
		Description:     "Salary",
		Amount:          decimal.RequireFromString("1000.00"),
		TransactionType: models.TypeRevenue,
		Date:            time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		UserID:          1,
	}
	err = repo.Create(context.Background(), transaction)

	assert.NoError(t, err)
	assert.Equal(t, 3, transaction.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRepository_FindByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db)

	mock.ExpectQuery("SELECT id, description, amount, transaction_type, date, user_id").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "description", "amount", "transaction_type", "date", "user_id"}).
			AddRow(1, "Coffee", "12.50", "despesa", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 1).
			AddRow(2, "Salary", "1000.00", "receita", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), 1))

	transactions, err := repo.FindByOwner(context.Background(), 1)

	assert.NoError(t, err)
	assert.Len(t, transactions, 2)
	assert.True(t, transactions[0].Amount.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, transactions[1].Amount.Equal(decimal.RequireFromString("1000.00")))
}

func TestPostgresTransactionRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db)

	t.Run("locks, mutates and commits", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "description", "amount", "transaction_type", "date", "user_id"}).
				AddRow(1, "Coffee", "12.50", "despesa", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 1))
		mock.ExpectExec("UPDATE transactions").
			WithArgs("Lunch", sqlmock.AnyArg(), "despesa", sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		updated, err := repo.Update(context.Background(), 1, 1, func(tr *models.Transaction) {
			tr.Description = "Lunch"
		})

		assert.NoError(t, err)
		assert.Equal(t, "Lunch", updated.Description)
		assert.True(t, updated.Amount.Equal(decimal.RequireFromString("12.50")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(9, 1).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.Update(context.Background(), 9, 1, func(tr *models.Transaction) {})

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed write rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "description", "amount", "transaction_type", "date", "user_id"}).
				AddRow(1, "Coffee", "12.50", "despesa", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 1))
		mock.ExpectExec("UPDATE transactions").
			WillReturnError(errors.New("write failed"))
		mock.ExpectRollback()

		_, err := repo.Update(context.Background(), 1, 1, func(tr *models.Transaction) {})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db)

	t.Run("deletes owned row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM transactions").
			WithArgs(1, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), 1, 1))
	})

	t.Run("zero affected rows surfaces sql.ErrNoRows", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM transactions").
			WithArgs(1, 2).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), 1, 2)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresTransactionRepository_SummaryByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db)

	mock.ExpectQuery("SELECT").
		WithArgs(1, models.TypeRevenue, models.TypeExpense).
		WillReturnRows(sqlmock.NewRows([]string{"total_revenue", "total_expenses", "balance"}).
			AddRow("1000.00", "250.00", "750.00"))

	summary, err := repo.SummaryByOwner(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, "1000.00", summary.TotalRevenue)
	assert.Equal(t, "250.00", summary.TotalExpenses)
	assert.Equal(t, "750.00", summary.Balance)
}
