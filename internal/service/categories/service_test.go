package categories

import (
	"context"
	"errors"
	"testing"

	"github.com/vovakirdan/docflow-server/internal/store"
	"github.com/vovakirdan/docflow-server/internal/store/sqlite"
)

type recorder struct {
	created []*store.Category
}

func (r *recorder) CategoryCreated(_ context.Context, cat *store.Category) {
	r.created = append(r.created, cat)
}

func TestCreateValidatesAndAnnounces(t *testing.T) {
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	events := &recorder{}
	svc := New(st, events)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "   ", ""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := svc.Create(ctx, "Invoices", "red"); !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("expected ErrInvalidColor, got %v", err)
	}
	if len(events.created) != 0 {
		t.Fatalf("invalid input must not be announced")
	}

	cat, err := svc.Create(ctx, " Invoices ", "#1E88E5")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cat.Name != "Invoices" || cat.ID == "" {
		t.Fatalf("unexpected category: %+v", cat)
	}
	if len(events.created) != 1 || events.created[0].ID != cat.ID {
		t.Fatalf("category was not announced: %+v", events.created)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != cat.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
}
