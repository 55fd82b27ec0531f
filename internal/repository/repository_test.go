package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/asset-gateway/internal/domain"
)

func newCustomers() Repository[domain.Customer] {
	return NewMemoryRepository(Accessor[domain.Customer]{
		ID:     func(c *domain.Customer) *string { return &c.ID },
		Stamps: func(c *domain.Customer) *domain.Timestamps { return &c.Timestamps },
		Search: func(c *domain.Customer) string { return c.Name + " " + c.Email },
	})
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	repo := newCustomers()
	ctx := context.Background()

	c := &domain.Customer{Name: "Acme"}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() || !c.CreatedAt.Equal(c.UpdatedAt) {
		t.Fatalf("expected id and timestamps, got %+v", c)
	}
	if err := repo.Create(ctx, &domain.Customer{ID: c.ID}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	repo := newCustomers()
	ctx := context.Background()

	c := &domain.Customer{Name: "Acme"}
	_ = repo.Create(ctx, c)

	next := &domain.Customer{Name: "Acme Ltd"}
	if err := repo.Update(ctx, c.ID, next); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Acme Ltd" || !got.CreatedAt.Equal(c.CreatedAt) || got.ID != c.ID {
		t.Fatalf("unexpected record %+v", got)
	}
	if err := repo.Update(ctx, "missing", &domain.Customer{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	repo := newCustomers()
	ctx := context.Background()
	c := &domain.Customer{Name: "Acme"}
	_ = repo.Create(ctx, c)

	got, _ := repo.GetByID(ctx, c.ID)
	got.Name = "changed"
	again, _ := repo.GetByID(ctx, c.ID)
	if again.Name != "Acme" {
		t.Fatalf("stored record mutated through returned pointer")
	}
}

func TestListPagesAndSearches(t *testing.T) {
	repo := newCustomers()
	ctx := context.Background()
	for _, name := range []string{"Alpha", "Beta", "Gamma", "Alphabet", "Delta"} {
		_ = repo.Create(ctx, &domain.Customer{Name: name})
	}

	page, total, err := repo.List(ctx, Query{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(page) != 2 || page[0].Name != "Gamma" || page[1].Name != "Alphabet" {
		t.Fatalf("unexpected page total=%d %+v", total, page)
	}

	found, total, _ := repo.List(ctx, Query{Search: "ALPHA"})
	if total != 2 || found[0].Name != "Alpha" || found[1].Name != "Alphabet" {
		t.Fatalf("unexpected search result %+v", found)
	}

	beyond, total, _ := repo.List(ctx, Query{Page: 9, PerPage: 2})
	if total != 5 || len(beyond) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", beyond)
	}
}

func TestDeleteManySkipsMissing(t *testing.T) {
	repo := newCustomers()
	ctx := context.Background()
	a := &domain.Customer{Name: "A"}
	b := &domain.Customer{Name: "B"}
	_ = repo.Create(ctx, a)
	_ = repo.Create(ctx, b)

	deleted, err := repo.DeleteMany(ctx, []string{a.ID, "missing"})
	if err != nil || deleted != 1 {
		t.Fatalf("expected one deletion, got %d (%v)", deleted, err)
	}
	if err := repo.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	all, _ := repo.All(ctx)
	if len(all) != 1 || all[0].ID != b.ID {
		t.Fatalf("unexpected remaining records %+v", all)
	}
}

func TestFindOne(t *testing.T) {
	repo := newCustomers()
	ctx := context.Background()
	_ = repo.Create(ctx, &domain.Customer{Name: "A", Email: "a@example.com"})

	got, err := repo.FindOne(ctx, func(c *domain.Customer) bool { return c.Email == "a@example.com" })
	if err != nil || got.Name != "A" {
		t.Fatalf("unexpected result %+v (%v)", got, err)
	}
	if _, err := repo.FindOne(ctx, func(*domain.Customer) bool { return false }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
