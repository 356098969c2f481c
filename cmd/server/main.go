// CoinFlow - personal finance ledger service
// Entry point for the API server
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/coinflowhq/coinflow/internal/config"
	"github.com/coinflowhq/coinflow/internal/handlers"
	"github.com/coinflowhq/coinflow/internal/mail"
	"github.com/coinflowhq/coinflow/internal/middleware"
	"github.com/coinflowhq/coinflow/internal/services/auth"
	"github.com/coinflowhq/coinflow/internal/services/ledger"
	"github.com/coinflowhq/coinflow/internal/session"
	"github.com/coinflowhq/coinflow/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := storage.New(context.Background(), cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := storage.NewUserRepository(db)
	accountRepo := storage.NewAccountRepository(db)
	incomeRepo := storage.NewIncomeRepository(db)
	expenseRepo := storage.NewExpenseRepository(db)
	transactionRepo := storage.NewTransactionRepository(db)

	// The token registry lives for the life of the process; sessions and
	// reset codes do not survive a restart.
	registry := session.NewRegistry()

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.EmailConfigured() {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailName,
		})
	} else {
		log.Println("SMTP credentials not configured; reset links are logged instead")
	}

	// Initialize services
	authService := auth.NewService(userRepo, registry, mailer, cfg.BaseURL, cfg.ResetTTL)
	ledgerService := ledger.NewService(accountRepo, incomeRepo, expenseRepo, transactionRepo)

	// Initialize handlers
	h := handlers.New(authService, ledgerService, userRepo, db)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthcheck", h.Healthcheck)

	// Users & auth
	mux.HandleFunc("GET /api/user", h.ListUsers)
	mux.HandleFunc("POST /api/user/new", h.CreateUser)
	mux.HandleFunc("POST /api/user/login", h.Login)
	mux.HandleFunc("POST /api/user/request_password_reset", h.RequestPasswordReset)
	mux.HandleFunc("POST /api/user/reset_password", h.ResetPassword)
	mux.HandleFunc("GET /api/user/{uuid}", h.GetUser)
	mux.HandleFunc("PUT /api/user/{uuid}", h.UpdateUser)
	mux.HandleFunc("DELETE /api/user/{uuid}", h.DeleteUser)

	// Accounts
	mux.HandleFunc("POST /api/account/new", h.CreateAccount)
	mux.HandleFunc("GET /api/accounts/{uuid}", h.ListAccounts)
	mux.HandleFunc("DELETE /api/account/{user_uuid}/{account_id}", h.DeleteAccount)

	// Incomes
	mux.HandleFunc("POST /api/income/new", h.CreateIncome)
	mux.HandleFunc("POST /api/incomes/bulk", h.BulkCreateIncomes)
	mux.HandleFunc("GET /api/incomes/{uuid}", h.ListIncomes)
	mux.HandleFunc("DELETE /api/income/{user_uuid}/{income_id}", h.DeleteIncome)

	// Expenses
	mux.HandleFunc("POST /api/expense/new", h.CreateExpense)
	mux.HandleFunc("POST /api/expenses/bulk", h.BulkCreateExpenses)
	mux.HandleFunc("GET /api/expenses/{uuid}", h.ListExpenses)
	mux.HandleFunc("DELETE /api/expense/{user_uuid}/{expense_id}", h.DeleteExpense)

	// Transactions
	mux.HandleFunc("POST /api/transaction/new", h.CreateTransaction)
	mux.HandleFunc("POST /api/transactions/bulk", h.BulkCreateTransactions)
	mux.HandleFunc("GET /api/transactions/{uuid}", h.ListTransactions)
	mux.HandleFunc("DELETE /api/transaction/{user_uuid}/{transaction_id}", h.DeleteTransaction)

	// Apply global middleware
	handler := middleware.Chain(
		mux,
		middleware.Recover,
		middleware.SecurityHeaders,
		middleware.Logger,
	)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("CoinFlow server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
