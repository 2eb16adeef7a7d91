package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
)

// dateLayout is the only accepted wire format for transaction dates.
const dateLayout = "2006-01-02"

type TransactionService struct {
	transactions repository.TransactionRepository
	validator    *ValidationHelper
}

// CreateTransactionRequest represents the transaction creation payload
type CreateTransactionRequest struct {
	Description     string          `json:"description" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type" validate:"required"`
	Date            string          `json:"date" validate:"required"`
}

// UpdateTransactionRequest is a partial payload; absent fields keep their
// stored value, so every field is a pointer and presence means replace.
type UpdateTransactionRequest struct {
	Description     *string          `json:"description"`
	Amount          *decimal.Decimal `json:"amount"`
	TransactionType *string          `json:"transaction_type"`
	Date            *string          `json:"date"`
}

// TransactionResponse is the wire form of a transaction: amount as a
// fixed-2-decimal string, date as ISO-8601, owner implied by the caller.
type TransactionResponse struct {
	ID              int    `json:"id"`
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	TransactionType string `json:"transaction_type"`
	Date            string `json:"date"`
}

func NewTransactionService(transactions repository.TransactionRepository) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		validator:    NewValidationHelper(),
	}
}

func toTransactionResponse(t *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		Description:     t.Description,
		Amount:          t.Amount.StringFixed(2),
		TransactionType: t.TransactionType,
		Date:            t.Date.Format(dateLayout),
	}
}

func currentUserID(r *http.Request) (int, bool) {
	userID, ok := r.Context().Value("userID").(int)
	return userID, ok
}

// CreateTransaction records a new transaction owned by the caller
func (ts *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CreateTransactionRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Incomplete transaction data", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		log.Printf("[TRANSACTION] Create validation failed: %v", err)
		SendErrorResponse(w, "Incomplete transaction data", http.StatusBadRequest, err)
		return
	}

	// A zero amount counts as missing, same as the other required fields.
	if req.Amount.IsZero() {
		SendErrorResponse(w, "Incomplete transaction data", http.StatusBadRequest, nil)
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		log.Printf("[TRANSACTION] Invalid date %q: %v", req.Date, err)
		SendErrorResponse(w, "Invalid date format, expected YYYY-MM-DD", http.StatusBadRequest, nil)
		return
	}

	transaction := &models.Transaction{
		Description:     req.Description,
		Amount:          req.Amount,
		TransactionType: req.TransactionType,
		Date:            date,
		UserID:          userID,
	}
	if err := ts.transactions.Create(r.Context(), transaction); err != nil {
		log.Printf("[TRANSACTION] Create failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[TRANSACTION] Created transaction %d for user %d", transaction.ID, userID)
	SendJSONResponse(w, http.StatusCreated, MessageResponse{Message: "Transaction created successfully"})
}

// ListTransactions returns every transaction owned by the caller
func (ts *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactions, err := ts.transactions.FindByOwner(r.Context(), userID)
	if err != nil {
		log.Printf("[TRANSACTION] List failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	results := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		results = append(results, toTransactionResponse(&transactions[i]))
	}

	SendJSONResponse(w, http.StatusOK, results)
}

// GetTransaction returns a single transaction. A record owned by someone
// else answers exactly like a record that does not exist.
func (ts *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}

	transaction, err := ts.transactions.FindByIDAndOwner(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[TRANSACTION] Fetch failed for transaction %d: %v", id, err)
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	SendJSONResponse(w, http.StatusOK, toTransactionResponse(transaction))
}

// UpdateTransaction partially updates an owned transaction. The read-modify-
// write runs inside one database transaction in the repository.
func (ts *TransactionService) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req UpdateTransactionRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	// The date is re-parsed only when the key is present, with the same
	// contract as create. Parsing happens before any row is touched.
	var newDate *time.Time
	if req.Date != nil {
		parsed, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			log.Printf("[TRANSACTION] Invalid date %q: %v", *req.Date, err)
			SendErrorResponse(w, "Invalid date format, expected YYYY-MM-DD", http.StatusBadRequest, nil)
			return
		}
		newDate = &parsed
	}

	updated, err := ts.transactions.Update(r.Context(), id, userID, func(t *models.Transaction) {
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.Amount != nil {
			t.Amount = *req.Amount
		}
		if req.TransactionType != nil {
			t.TransactionType = *req.TransactionType
		}
		if newDate != nil {
			t.Date = *newDate
		}
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[TRANSACTION] Update failed for transaction %d: %v", id, err)
			SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	log.Printf("[TRANSACTION] Updated transaction %d for user %d", id, userID)
	SendJSONResponse(w, http.StatusOK, toTransactionResponse(updated))
}

// DeleteTransaction permanently removes an owned transaction
func (ts *TransactionService) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}

	if err := ts.transactions.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[TRANSACTION] Delete failed for transaction %d: %v", id, err)
			SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	log.Printf("[TRANSACTION] Deleted transaction %d for user %d", id, userID)
	SendJSONResponse(w, http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}

// GetSummary returns the caller's revenue, expense and balance totals
func (ts *TransactionService) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	summary, err := ts.transactions.SummaryByOwner(r.Context(), userID)
	if err != nil {
		log.Printf("[TRANSACTION] Summary failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	SendJSONResponse(w, http.StatusOK, summary)
}
