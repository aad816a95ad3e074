package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/iskinnyufat-del/mc/internal/domain"
	"github.com/iskinnyufat-del/mc/internal/storage"
)

func TestDocumentStore_GetDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	_, err := store.GetDocument(ctx, "config", "draw")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	store.SetDocument("config", "draw", map[string]interface{}{
		"forceAllAsHolder": true,
		"holderChances":    int64(5),
	})

	data, err := store.GetDocument(ctx, "config", "draw")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if data["forceAllAsHolder"] != true {
		t.Errorf("forceAllAsHolder mismatch: got %v", data["forceAllAsHolder"])
	}

	// The returned map is a copy; mutations must not leak back.
	data["forceAllAsHolder"] = false
	again, _ := store.GetDocument(ctx, "config", "draw")
	if again["forceAllAsHolder"] != true {
		t.Error("stored document was mutated through the returned map")
	}
}

func TestResolutionStore_Insert(t *testing.T) {
	store := NewResolutionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil record, got %v", err)
	}

	r := &domain.Resolution{
		Cluster:  "mainnet-beta",
		Address:  "addr1",
		Holder:   true,
		Source:   domain.ResolutionSourceChain,
		Endpoint: "https://rpc.example.com",
		Attempts: 2,
	}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	all := store.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
	if all[0].Address != "addr1" || !all[0].Holder {
		t.Errorf("record mismatch: %+v", all[0])
	}
}
