// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/documents/receipt"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/document_repo"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
	"stockledger/pkg/numerator"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Actor())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Shared infrastructure
	txManager := postgres.NewTxManager(cfg.Pool)
	numbers := numerator.New(cfg.Pool)

	decisionAudit, err := postgres.NewDecisionAudit(txManager)
	if err != nil {
		return nil, err
	}

	// Repositories
	itemRepo := catalog_repo.NewItemRepo(txManager)
	batchRepo := ledger_repo.NewBatchRepo(txManager)
	journalRepo := ledger_repo.NewJournalRepo(txManager)
	issueRepo := document_repo.NewIssueRepo(txManager)
	receiptRepo := document_repo.NewReceiptRepo(txManager)

	// Services
	itemService := item.NewService(itemRepo)
	ledgerService := ledger.NewService(batchRepo, journalRepo, txManager)
	reversalEngine := ledger.NewEngine(ledgerService)
	issueService := issue.NewService(issueRepo, itemService, ledgerService, txManager, numbers)
	receiptService := receipt.NewService(receiptRepo, itemService, ledgerService, txManager, numbers)
	approvalService := approval.NewService(issueRepo, itemService, ledgerService, reversalEngine, txManager, decisionAudit)

	// API v1
	base := handlers.NewBaseHandler()
	api := router.Group("/api/v1")
	{
		itemHandler := handlers.NewItemHandler(base, itemService)
		itemHandler.RegisterRoutes(api.Group("/items"))

		stockHandler := handlers.NewStockHandler(base, ledgerService)
		stockHandler.RegisterRoutes(api.Group("/stock"))

		receiptHandler := handlers.NewReceiptHandler(base, receiptService)
		receiptHandler.RegisterRoutes(api.Group("/receipts"))

		issues := api.Group("/issues")
		issueHandler := handlers.NewIssueHandler(base, issueService)
		issueHandler.RegisterRoutes(issues)

		approvalHandler := handlers.NewApprovalHandler(base, approvalService, decisionAudit)
		approvalHandler.RegisterRoutes(issues)
	}

	return router, nil
}
