// Package main provides a CLI tool for seeding the database with demo data:
// a few catalog items with conversions and one posted goods receipt that
// opens batches in the central store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/documents/receipt"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/document_repo"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
	"stockledger/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	numbers := numerator.New(pool)

	itemService := item.NewService(catalog_repo.NewItemRepo(txManager))
	ledgerService := ledger.NewService(
		ledger_repo.NewBatchRepo(txManager),
		ledger_repo.NewJournalRepo(txManager),
		txManager,
	)
	receiptService := receipt.NewService(
		document_repo.NewReceiptRepo(txManager),
		itemService,
		ledgerService,
		txManager,
		numbers,
	)
	if err := seed(ctx, log, itemService, receiptService); err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Info("seeding completed successfully")
}

type seedItem struct {
	code     string
	name     string
	category string
	baseUOM  string

	// optional conversion into the base unit
	fromUOM string
	factor  string

	batchNo  string
	quantity float64
	uom      string
	rate     string
}

func seed(ctx context.Context, log *logger.Logger, items *item.Service, receipts *receipt.Service) error {
	seedItems := []seedItem{
		{
			code: "CBL-CAT6", name: "Cat6 Cable", category: "cables", baseUOM: "M",
			fromUOM: "ROLL", factor: "305",
			batchNo: "CBL-2026-001", quantity: 10, uom: "ROLL", rate: "12.50",
		},
		{
			code: "FLD-OPT", name: "Optical Fluid", category: "consumables", baseUOM: "ML",
			fromUOM: "L", factor: "1000",
			batchNo: "FLD-2026-001", quantity: 5, uom: "L", rate: "0.80",
		},
		{
			code: "CON-RJ45", name: "RJ45 Connector", category: "connectors", baseUOM: "PCS",
			batchNo: "CON-2026-001", quantity: 500, uom: "PCS", rate: "0.35",
		},
	}

	storeID := id.New()
	doc := receipt.NewGoodsReceipt(ledger.LocationRef{
		Type: ledger.LocationCentralStore,
		ID:   storeID,
	}, "SEED-INV-001")

	for _, s := range seedItems {
		it := item.NewItem(s.code, s.name, s.category, s.baseUOM)
		if err := items.Create(ctx, it); err != nil {
			if apperror.HasCode(err, apperror.CodeDuplicate) {
				log.Infow("item already seeded, skipping", "code", s.code)
				continue
			}
			return fmt.Errorf("seed item %s: %w", s.code, err)
		}

		if s.fromUOM != "" {
			factor, err := decimal.NewFromString(s.factor)
			if err != nil {
				return fmt.Errorf("parse factor for %s: %w", s.code, err)
			}
			conv := item.UomConversion{Factor: factor}
			if err := items.AddConversion(ctx, it.ID, s.fromUOM, s.baseUOM, conv); err != nil {
				return fmt.Errorf("seed conversion for %s: %w", s.code, err)
			}
		}

		doc.AddLine(it.ID, s.batchNo,
			types.NewQuantityFromFloat64(s.quantity), s.uom, types.MustMoney(s.rate))

		log.Infow("item seeded", "code", s.code, "base_uom", s.baseUOM)
	}

	if len(doc.Lines) == 0 {
		log.Info("no new items, skipping demo receipt")
		return nil
	}

	if err := receipts.Create(ctx, doc); err != nil {
		return fmt.Errorf("create demo receipt: %w", err)
	}
	if _, err := receipts.Post(ctx, doc.ID); err != nil {
		return fmt.Errorf("post demo receipt: %w", err)
	}

	log.Infow("demo receipt posted", "number", doc.Number, "lines", len(doc.Lines))
	return nil
}
