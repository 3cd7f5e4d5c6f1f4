package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/fjod/cart-api/internal/domain"
	"github.com/fjod/cart-api/internal/repository"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory catalog, user directory and cart repository with
// snapshot-and-restore transactions.
type memStore struct {
	m      sync.Mutex
	items  map[int64]*domain.Item
	users  map[int64]*domain.User
	lines  []*domain.CartLine
	outbox []*repository.OutboxEvent
	nextID int64

	// txInsertErr fails InsertLine inside a transaction after txInsertOK successful inserts.
	txInsertErr error
	txInsertOK  int
	writes      int
}

func newMemStore() *memStore {
	return &memStore{
		items: map[int64]*domain.Item{
			1: {ID: 1, Name: "Item 1", Price: decimal.RequireFromString("10.22")},
			2: {ID: 2, Name: "Item 2", Price: decimal.RequireFromString("5.50")},
			3: {ID: 3, Name: "Item 3", Price: decimal.RequireFromString("22.30")},
		},
		users: map[int64]*domain.User{
			1: {ID: 1, Name: "John", Email: "john@cart.local"},
			2: {ID: 2, Name: "Francis", Email: "francis@cart.local"},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func (s *memStore) FindItem(_ context.Context, id int64) (*domain.Item, error) {
	s.m.Lock()
	defer s.m.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *memStore) FindItems(_ context.Context, ids []int64) ([]*domain.Item, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var out []*domain.Item
	for _, id := range ids {
		if it, ok := s.items[id]; ok && !slices.ContainsFunc(out, func(o *domain.Item) bool { return o.ID == id }) {
			cp := *it
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Item) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *memStore) ListItems(ctx context.Context) ([]*domain.Item, error) {
	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	return s.FindItems(ctx, ids)
}

func (s *memStore) FindUser(_ context.Context, id int64) (*domain.User, error) {
	s.m.Lock()
	defer s.m.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.m.Lock()
	defer s.m.Unlock()
	for _, u := range s.users {
		if u.Email == domain.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *memStore) CreateUser(_ context.Context, user *domain.User) error {
	s.m.Lock()
	defer s.m.Unlock()
	for _, u := range s.users {
		if u.Email == domain.NormalizeEmail(user.Email) {
			return repository.ErrEmailTaken
		}
	}
	user.ID = int64(len(s.users) + 100)
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memStore) FindActiveLine(_ context.Context, userID, itemID int64) (*domain.CartLine, error) {
	s.m.Lock()
	defer s.m.Unlock()
	for _, l := range s.lines {
		if l.UserID == userID && l.ItemID == itemID && l.IsActive() {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repository.ErrLineNotFound
}

func (s *memStore) ListActiveLines(_ context.Context, userID int64) ([]*domain.CartLine, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var out []*domain.CartLine
	for _, l := range s.lines {
		if l.UserID == userID && l.IsActive() {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) InsertLine(_ context.Context, line *domain.CartLine) error {
	s.m.Lock()
	defer s.m.Unlock()
	return s.insertLocked(line)
}

func (s *memStore) insertLocked(line *domain.CartLine) error {
	if _, ok := s.users[line.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, l := range s.lines {
		if l.UserID == line.UserID && l.ItemID == line.ItemID && l.IsActive() {
			return repository.ErrActiveLineExists
		}
	}
	s.nextID++
	line.ID = s.nextID
	cp := *line
	s.lines = append(s.lines, &cp)
	s.writes++
	return nil
}

func (s *memStore) IncrementQuantity(_ context.Context, lineID int64, delta int) error {
	s.m.Lock()
	defer s.m.Unlock()
	for _, l := range s.lines {
		if l.ID == lineID && l.IsActive() {
			l.Quantity += delta
			s.writes++
			return nil
		}
	}
	return repository.ErrLineNotFound
}

func (s *memStore) TagActiveLines(_ context.Context, userID int64, tag string) (int64, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.tagLocked(userID, tag), nil
}

func (s *memStore) tagLocked(userID int64, tag string) int64 {
	var n int64
	for _, l := range s.lines {
		if l.UserID == userID && l.IsActive() {
			t := tag
			l.SnapshotTag = &t
			n++
		}
	}
	s.writes += int(n)
	return n
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx repository.CartTx) error) error {
	s.m.Lock()
	saved := make([]domain.CartLine, len(s.lines))
	for i, l := range s.lines {
		saved[i] = *l
	}
	savedOutbox := len(s.outbox)
	savedNext, savedWrites := s.nextID, s.writes
	s.m.Unlock()

	err := fn(&memTx{s: s})
	if err == nil {
		return nil
	}

	s.m.Lock()
	defer s.m.Unlock()
	s.lines = s.lines[:0]
	for i := range saved {
		l := saved[i]
		s.lines = append(s.lines, &l)
	}
	s.outbox = s.outbox[:savedOutbox]
	s.nextID, s.writes = savedNext, savedWrites
	return err
}

func (s *memStore) activeLines(userID int64) []domain.CartLine {
	lines, _ := s.ListActiveLines(context.Background(), userID)
	out := make([]domain.CartLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, *l)
	}
	return out
}

type memTx struct {
	s       *memStore
	inserts int
}

func (t *memTx) LockUser(_ context.Context, userID int64) error {
	t.s.m.Lock()
	defer t.s.m.Unlock()
	if _, ok := t.s.users[userID]; !ok {
		return repository.ErrUserNotFound
	}
	return nil
}

func (t *memTx) TagActiveLines(_ context.Context, userID int64, tag string) (int64, error) {
	t.s.m.Lock()
	defer t.s.m.Unlock()
	return t.s.tagLocked(userID, tag), nil
}

func (t *memTx) InsertLine(_ context.Context, line *domain.CartLine) error {
	t.s.m.Lock()
	defer t.s.m.Unlock()
	if t.s.txInsertErr != nil && t.inserts >= t.s.txInsertOK {
		return t.s.txInsertErr
	}
	t.inserts++
	return t.s.insertLocked(line)
}

func (t *memTx) AddOutboxEvent(_ context.Context, event *repository.OutboxEvent) error {
	t.s.m.Lock()
	defer t.s.m.Unlock()
	event.ID = int64(len(t.s.outbox) + 1)
	t.s.outbox = append(t.s.outbox, event)
	return nil
}
