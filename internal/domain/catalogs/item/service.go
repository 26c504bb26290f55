package item

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// Service provides business operations for the item catalog.
type Service struct {
	repo Repository
}

// NewService creates a new item service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new catalog item.
func (s *Service) Create(ctx context.Context, it *Item) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}

	if it.Code != "" {
		existing, err := s.repo.GetByCode(ctx, it.Code)
		if err != nil && !apperror.IsNotFound(err) {
			return fmt.Errorf("check code: %w", err)
		}
		if existing != nil {
			return apperror.NewDuplicate("item", "code", it.Code)
		}
	}

	if err := s.repo.Create(ctx, it); err != nil {
		return fmt.Errorf("create item: %w", err)
	}

	logger.Info(ctx, "item created", "id", it.ID, "code", it.Code, "base_uom", it.BaseUOM)
	return nil
}

// GetByID retrieves an item with its conversion list.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// List retrieves items with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	return s.repo.List(ctx, filter)
}

// AddConversion stores a new conversion record for an item.
// Duplicate (from, to) pairs are rejected; record the inverse pair only
// if the factor genuinely differs from the reciprocal.
func (s *Service) AddConversion(ctx context.Context, itemID id.ID, fromUOM, toUOM string, conv UomConversion) error {
	conv.ItemID = itemID
	conv.FromUOM = fromUOM
	conv.ToUOM = toUOM
	if id.IsNil(conv.ID) {
		conv.ID = id.New()
	}

	if err := conv.Validate(); err != nil {
		return err
	}

	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}

	if it.HasConversion(fromUOM, toUOM) {
		return apperror.NewDuplicate("conversion", "uom pair", fromUOM+"->"+toUOM)
	}

	if err := s.repo.AddConversion(ctx, conv); err != nil {
		return fmt.Errorf("add conversion: %w", err)
	}

	logger.Info(ctx, "conversion added",
		"item_id", itemID,
		"from_uom", fromUOM,
		"to_uom", toUOM,
		"factor", conv.Factor.String(),
	)
	return nil
}

// ResolveConversion loads the item and resolves the factor from fromUOM
// to the item's base unit.
func (s *Service) ResolveConversion(ctx context.Context, itemID id.ID, fromUOM string) (Resolution, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return Resolution{}, err
	}
	return ResolveConversion(it, fromUOM)
}
