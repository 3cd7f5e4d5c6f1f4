package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/cart-api/internal/domain"
)

var (
	ErrItemNotFound     = errors.New("item not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrLineNotFound     = errors.New("active cart line not found")
	ErrActiveLineExists = errors.New("active cart line already exists for user and item")
	ErrEmailTaken       = errors.New("email already in use")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Catalog is the read-only item lookup.
type Catalog interface {
	FindItem(ctx context.Context, id int64) (*domain.Item, error)
	// FindItems returns the items that exist among ids, ordered by id. Missing ids are not an error.
	FindItems(ctx context.Context, ids []int64) ([]*domain.Item, error)
	ListItems(ctx context.Context) ([]*domain.Item, error)
}

type UserDirectory interface {
	FindUser(ctx context.Context, id int64) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user *domain.User) error
}

// CartRepository stores cart lines. Single-statement writes go straight to the
// database; multi-row mutations must go through WithTx.
type CartRepository interface {
	FindActiveLine(ctx context.Context, userID, itemID int64) (*domain.CartLine, error)
	ListActiveLines(ctx context.Context, userID int64) ([]*domain.CartLine, error)
	InsertLine(ctx context.Context, line *domain.CartLine) error
	IncrementQuantity(ctx context.Context, lineID int64, delta int) error
	TagActiveLines(ctx context.Context, userID int64, tag string) (int64, error)
	WithTx(ctx context.Context, fn func(tx CartTx) error) error
}

// CartTx is the set of cart mutations available inside one transaction.
type CartTx interface {
	LockUser(ctx context.Context, userID int64) error
	TagActiveLines(ctx context.Context, userID int64, tag string) (int64, error)
	InsertLine(ctx context.Context, line *domain.CartLine) error
	AddOutboxEvent(ctx context.Context, event *OutboxEvent) error
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
