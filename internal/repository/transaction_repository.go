package repository

import (
	"context"
	"database/sql"

	"github.com/fintrack/backend/internal/models"
)

// TransactionRepository defines persistence operations for transactions.
// Every owner-scoped lookup filters by user_id in SQL, so a record that
// exists under another owner is indistinguishable from one that does not
// exist at all (both surface as sql.ErrNoRows).
type TransactionRepository interface {
	// Create inserts a new transaction and assigns its ID.
	Create(ctx context.Context, t *models.Transaction) error

	// FindByOwner returns all transactions owned by ownerID in insertion order.
	FindByOwner(ctx context.Context, ownerID int) ([]models.Transaction, error)

	// FindByIDAndOwner retrieves a single transaction scoped to its owner.
	FindByIDAndOwner(ctx context.Context, id, ownerID int) (*models.Transaction, error)

	// Update applies a mutation to the owner-scoped transaction inside a
	// single database transaction. The row is locked for the duration so
	// concurrent edits cannot produce lost updates.
	Update(ctx context.Context, id, ownerID int, apply func(*models.Transaction)) (*models.Transaction, error)

	// Delete permanently removes the owner-scoped transaction.
	Delete(ctx context.Context, id, ownerID int) error

	// SummaryByOwner computes revenue, expense and balance totals store-side.
	SummaryByOwner(ctx context.Context, ownerID int) (*models.Summary, error)
}

// PostgresTransactionRepository implements TransactionRepository against Postgres.
type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	return r.db.QueryRowContext(ctx, `
        INSERT INTO transactions (description, amount, transaction_type, date, user_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, t.Description, t.Amount, t.TransactionType, t.Date, t.UserID).Scan(&t.ID)
}

func (r *PostgresTransactionRepository) FindByOwner(ctx context.Context, ownerID int) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, description, amount, transaction_type, date, user_id
        FROM transactions
        WHERE user_id = $1
        ORDER BY id
    `, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Description, &t.Amount, &t.TransactionType, &t.Date, &t.UserID); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *PostgresTransactionRepository) FindByIDAndOwner(ctx context.Context, id, ownerID int) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, description, amount, transaction_type, date, user_id
        FROM transactions
        WHERE id = $1 AND user_id = $2
    `, id, ownerID).Scan(&t.ID, &t.Description, &t.Amount, &t.TransactionType, &t.Date, &t.UserID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresTransactionRepository) Update(ctx context.Context, id, ownerID int, apply func(*models.Transaction)) (*models.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := &models.Transaction{}
	err = tx.QueryRowContext(ctx, `
        SELECT id, description, amount, transaction_type, date, user_id
        FROM transactions
        WHERE id = $1 AND user_id = $2
        FOR UPDATE
    `, id, ownerID).Scan(&t.ID, &t.Description, &t.Amount, &t.TransactionType, &t.Date, &t.UserID)
	if err != nil {
		return nil, err
	}

	apply(t)

	_, err = tx.ExecContext(ctx, `
        UPDATE transactions
        SET description = $1, amount = $2, transaction_type = $3, date = $4
        WHERE id = $5
    `, t.Description, t.Amount, t.TransactionType, t.Date, t.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresTransactionRepository) Delete(ctx context.Context, id, ownerID int) error {
	result, err := r.db.ExecContext(ctx, `
        DELETE FROM transactions WHERE id = $1 AND user_id = $2
    `, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SummaryByOwner casts the aggregates to text so the NUMERIC(10,2) scale is
// preserved exactly: totals render as "1000.00" and the COALESCE fallback as
// a bare "0", with no float conversion in between.
func (r *PostgresTransactionRepository) SummaryByOwner(ctx context.Context, ownerID int) (*models.Summary, error) {
	s := &models.Summary{}
	err := r.db.QueryRowContext(ctx, `
        SELECT
            COALESCE(SUM(amount) FILTER (WHERE transaction_type = $2), 0)::text,
            COALESCE(SUM(amount) FILTER (WHERE transaction_type = $3), 0)::text,
            COALESCE(SUM(CASE WHEN transaction_type = $2 THEN amount
                             WHEN transaction_type = $3 THEN -amount END), 0)::text
        FROM transactions
        WHERE user_id = $1
    `, ownerID, models.TypeRevenue, models.TypeExpense).Scan(&s.TotalRevenue, &s.TotalExpenses, &s.Balance)
	if err != nil {
		return nil, err
	}
	return s, nil
}
