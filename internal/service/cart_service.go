package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fjod/cart-api/internal/domain"
	"github.com/fjod/cart-api/internal/repository"
	"github.com/google/uuid"
)

type CartService struct {
	catalog repository.Catalog
	users   repository.UserDirectory
	carts   repository.CartRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewCartService(
	catalog repository.Catalog,
	users repository.UserDirectory,
	carts repository.CartRepository,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		catalog: catalog,
		users:   users,
		carts:   carts,
		logger:  logger,
		now:     time.Now,
	}
}

// AddItemToCart adds one unit of the item to the user's active cart, creating
// the line if needed.
func (s *CartService) AddItemToCart(ctx context.Context, itemID, userID int64) error {
	if _, err := s.catalog.FindItem(ctx, itemID); err != nil {
		return fmt.Errorf("find item %d: %w", itemID, err)
	}
	if _, err := s.users.FindUser(ctx, userID); err != nil {
		return fmt.Errorf("find user %d: %w", userID, err)
	}

	err := s.incrementOrInsert(ctx, userID, itemID)
	if errors.Is(err, repository.ErrActiveLineExists) {
		// lost an insert race; the winner's line is now there to increment
		s.logger.DebugContext(ctx, "concurrent cart line insert, retrying", "user_id", userID, "item_id", itemID)
		err = s.incrementOrInsert(ctx, userID, itemID)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "add item to cart failed", "user_id", userID, "item_id", itemID, "error", err)
		return fmt.Errorf("add item to cart: %w", err)
	}
	return nil
}

func (s *CartService) incrementOrInsert(ctx context.Context, userID, itemID int64) error {
	line, err := s.carts.FindActiveLine(ctx, userID, itemID)
	switch {
	case err == nil:
		err = s.carts.IncrementQuantity(ctx, line.ID, 1)
		if !errors.Is(err, repository.ErrLineNotFound) {
			return err
		}
		// archived between the read and the update
	case !errors.Is(err, repository.ErrLineNotFound):
		return err
	}

	return s.carts.InsertLine(ctx, &domain.CartLine{
		UserID:    userID,
		ItemID:    itemID,
		Quantity:  1,
		CreatedAt: s.now().UTC(),
	})
}

// GetCart returns the user's active lines priced at current catalog prices,
// ordered by line id.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*domain.CartView, error) {
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", userID, err)
	}

	lines, err := s.carts.ListActiveLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active lines: %w", err)
	}
	if len(lines) == 0 {
		return domain.NewCartView(user.Name, nil), nil
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	items, err := s.catalog.FindItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	byID := make(map[int64]*domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	views := make([]domain.LineView, 0, len(lines))
	for _, l := range lines {
		item, ok := byID[l.ItemID]
		if !ok {
			s.logger.WarnContext(ctx, "cart line references missing item", "user_id", userID, "item_id", l.ItemID, "line_id", l.ID)
			continue
		}
		views = append(views, domain.LineView{
			UserID:   l.UserID,
			ItemID:   l.ItemID,
			Price:    item.Price,
			Quantity: l.Quantity,
		})
	}

	return domain.NewCartView(user.Name, views), nil
}

// ReplaceCart archives the user's active lines under a new snapshot tag and
// stores itemIDs as the new cart, duplicates collapsing into quantities.
// Either the whole replacement is visible or none of it.
func (s *CartService) ReplaceCart(ctx context.Context, userID int64, itemIDs []int64) error {
	if _, err := s.users.FindUser(ctx, userID); err != nil {
		return fmt.Errorf("find user %d: %w", userID, err)
	}

	ids, quantities := domain.CountQuantities(itemIDs)
	if err := s.resolveItems(ctx, ids); err != nil {
		return err
	}

	tag := uuid.NewString()
	now := s.now().UTC()

	err := s.carts.WithTx(ctx, func(tx repository.CartTx) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}

		archived, err := tx.TagActiveLines(ctx, userID, tag)
		if err != nil {
			return err
		}

		event := domain.CartReplacedEvent{
			UserID:        userID,
			SnapshotTag:   tag,
			ArchivedLines: archived,
			Items:         make([]domain.CartReplacedItem, 0, len(ids)),
			ReplacedAt:    now,
		}
		for _, id := range ids {
			line := &domain.CartLine{
				UserID:    userID,
				ItemID:    id,
				Quantity:  quantities[id],
				CreatedAt: now,
			}
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
			event.Items = append(event.Items, domain.CartReplacedItem{ItemID: id, Quantity: line.Quantity})
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal cart replaced event: %w", err)
		}
		return tx.AddOutboxEvent(ctx, &repository.OutboxEvent{
			AggregateID: strconv.FormatInt(userID, 10),
			EventType:   domain.EventCartReplaced,
			Payload:     payload,
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "replace cart failed", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	s.logger.InfoContext(ctx, "cart replaced", "user_id", userID, "snapshot_tag", tag, "distinct_items", len(ids))
	return nil
}

func (s *CartService) resolveItems(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	items, err := s.catalog.FindItems(ctx, ids)
	if err != nil {
		return fmt.Errorf("find items: %w", err)
	}
	found := make(map[int64]struct{}, len(items))
	for _, it := range items {
		found[it.ID] = struct{}{}
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrItemNotFound, missing)
	}
	return nil
}
