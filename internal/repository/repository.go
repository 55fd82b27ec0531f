// Package repository holds the dev server's in-memory collections.
package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/asset-gateway/internal/domain"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when creating a record whose id is taken.
	ErrConflict = errors.New("record already exists")
)

// Accessor exposes the identity and timestamps of T.
type Accessor[T any] struct {
	ID     func(*T) *string
	Stamps func(*T) *domain.Timestamps
	// Search returns the text a list search matches against. Nil disables search.
	Search func(*T) string
}

// Query selects one page of a collection.
type Query struct {
	Page    int
	PerPage int
	Search  string
}

// Repository defines access to one collection.
type Repository[T any] interface {
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, id string, item *T) error
	GetByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, match func(*T) bool) (*T, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
	List(ctx context.Context, q Query) ([]T, int, error)
	All(ctx context.Context) ([]T, error)
}

type memoryRepository[T any] struct {
	mu     sync.RWMutex
	items  map[string]T
	order  []string
	access Accessor[T]
	now    func() time.Time
}

// NewMemoryRepository returns a map-backed implementation. Records come back as copies,
// in insertion order.
func NewMemoryRepository[T any](access Accessor[T]) Repository[T] {
	return &memoryRepository[T]{
		items:  make(map[string]T),
		access: access,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryRepository[T]) Create(_ context.Context, item *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.access.ID(item)
	if *id == "" {
		*id = uuid.NewString()
	}
	if _, exists := r.items[*id]; exists {
		return ErrConflict
	}
	stamps := r.access.Stamps(item)
	*stamps = domain.Timestamps{}
	stamps.Touch(r.now())
	r.items[*id] = *item
	r.order = append(r.order, *id)
	return nil
}

func (r *memoryRepository[T]) Update(_ context.Context, id string, item *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	*r.access.ID(item) = id
	stamps := r.access.Stamps(item)
	stamps.CreatedAt = r.access.Stamps(&current).CreatedAt
	stamps.Touch(r.now())
	r.items[id] = *item
	return nil
}

func (r *memoryRepository[T]) GetByID(_ context.Context, id string) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r *memoryRepository[T]) FindOne(_ context.Context, match func(*T) bool) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.snapshotLocked() {
		if match(&item) {
			return &item, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepository[T]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	r.remove(id)
	return nil
}

func (r *memoryRepository[T]) DeleteMany(_ context.Context, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			r.remove(id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memoryRepository[T]) List(_ context.Context, q Query) ([]T, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.snapshotLocked()
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" && r.access.Search != nil {
		filtered := all[:0]
		for _, item := range all {
			if strings.Contains(strings.ToLower(r.access.Search(&item)), term) {
				filtered = append(filtered, item)
			}
		}
		all = filtered
	}

	total := len(all)
	if q.PerPage <= 0 {
		return all, total, nil
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * q.PerPage
	if start >= total {
		return []T{}, total, nil
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *memoryRepository[T]) All(ctx context.Context) ([]T, error) {
	items, _, err := r.List(ctx, Query{})
	return items, err
}

func (r *memoryRepository[T]) snapshotLocked() []T {
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

func (r *memoryRepository[T]) remove(id string) {
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
