package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	mw "github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
)

// TestAccountLifecycle walks the full flow a client would perform: register,
// login with the issued token, record a transaction and read the summary back.
// The token crosses the real auth middleware, not a test shim.
func TestAccountLifecycle(t *testing.T) {
	setupAuthTestConfig()
	mw.InitAuthMiddleware(nil)

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	authService := NewAuthService(repository.NewUserRepository(db), nil)
	transactionService := NewTransactionService(repository.NewTransactionRepository(db))

	router := chi.NewRouter()
	router.Post("/api/register", authService.Register)
	router.Post("/api/login", authService.Login)
	router.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware)
		r.Post("/api/transactions", transactionService.CreateTransaction)
		r.Get("/api/summary", transactionService.GetSummary)
	})

	// Register
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE username`).
		WithArgs("ana").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email`).
		WithArgs("ana@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ana", "ana@x.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/register",
		strings.NewReader(`{"username": "ana", "email": "ana@x.com", "password": "secret1"}`))
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Login
	storedHash, err := hashPassword("secret1")
	assert.NoError(t, err)
	mock.ExpectQuery("SELECT id, username, email, password_hash FROM users WHERE email").
		WithArgs("ana@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash"}).
			AddRow(1, "ana", "ana@x.com", storedHash))

	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/api/login",
		strings.NewReader(`{"email": "ana@x.com", "password": "secret1"}`))
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	var tokenResponse TokenResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokenResponse))
	assert.NotEmpty(t, tokenResponse.AccessToken)

	// Create a transaction with the issued token
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs("Salary", sqlmock.AnyArg(), models.TypeRevenue, sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/api/transactions",
		strings.NewReader(`{"description": "Salary", "amount": 1000.00, "transaction_type": "receita", "date": "2024-01-05"}`))
	r.Header.Set("Authorization", "Bearer "+tokenResponse.AccessToken)
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Summary reflects the stored state
	mock.ExpectQuery("SELECT").
		WithArgs(1, models.TypeRevenue, models.TypeExpense).
		WillReturnRows(sqlmock.NewRows([]string{"total_revenue", "total_expenses", "balance"}).
			AddRow("1000.00", "0", "1000.00"))

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/api/summary", nil)
	r.Header.Set("Authorization", "Bearer "+tokenResponse.AccessToken)
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	var summary models.Summary
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "1000.00", summary.TotalRevenue)
	assert.Equal(t, "0", summary.TotalExpenses)
	assert.Equal(t, "1000.00", summary.Balance)

	// The same requests without the token never reach the services
	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/api/summary", nil)
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}
