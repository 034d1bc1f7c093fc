package runtime

import (
	"errors"
	"strings"
	"testing"

	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
)

func TestDurabilityIsDurable(t *testing.T) {
	if !DurabilityUnset.IsDurable() {
		t.Fatal("unset durability must default to durable")
	}
	if !Durable.IsDurable() {
		t.Fatal("Durable must report durable")
	}
	if Transient.IsDurable() {
		t.Fatal("Transient must not report durable")
	}
}

func TestRegistryDeclareRejectsInvalidDeclaration(t *testing.T) {
	reg := NewRegistry()
	decl := itemCreatedDeclaration()
	decl.Title = ""

	err := reg.Declare(decl)

	var declErr *errspkg.DeclarationError
	if !errors.As(err, &declErr) {
		t.Fatalf("expected a DeclarationError, got %T", err)
	}
	if declErr.Exchange != "item-created" || declErr.Name != "itemCreated" {
		t.Fatalf("unexpected error identity %+v", declErr)
	}
	if !errors.Is(err, errspkg.ErrTitleRequired) {
		t.Fatalf("expected the cause to be ErrTitleRequired, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("a rejected declaration must leave the registry unchanged, got %d", reg.Len())
	}
}

func TestRegistryDeclareRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Declare(itemCreatedDeclaration()); err != nil {
		t.Fatalf("declare failed: %v", err)
	}

	t.Run("same exchange", func(t *testing.T) {
		dup := itemCreatedDeclaration()
		dup.Name = "itemCreatedAgain"
		err := reg.Declare(dup)
		if !errors.Is(err, &errspkg.DeclarationError{}) {
			t.Fatalf("expected a DeclarationError, got %v", err)
		}
		if !strings.Contains(err.Error(), `exchange "item-created" is already declared`) {
			t.Fatalf("unexpected message %q", err)
		}
	})

	t.Run("same name", func(t *testing.T) {
		dup := itemCreatedDeclaration()
		dup.Exchange = "item-created-v2"
		err := reg.Declare(dup)
		if !strings.Contains(err.Error(), `name "itemCreated" is already declared`) {
			t.Fatalf("unexpected message %q", err)
		}
	})

	if reg.Len() != 1 {
		t.Fatalf("duplicates must not grow the registry, got %d", reg.Len())
	}
}

func TestRegistrySchemaPrefixAppliesAtDeclareTime(t *testing.T) {
	reg := NewRegistry()

	early := itemCreatedDeclaration()
	early.Schema = "inventory/v1/item-created.json"
	if err := reg.Declare(early); err != nil {
		t.Fatalf("declare failed: %v", err)
	}

	reg.Configure(Options{SchemaPrefix: "https://schemas.example.com/"})

	late := itemDeletedDeclaration()
	late.Schema = "inventory/v1/item-deleted.json"
	if err := reg.Declare(late); err != nil {
		t.Fatalf("declare failed: %v", err)
	}

	snap := reg.Snapshot()
	first, _ := snap.Get("itemCreated")
	if first.Schema != "inventory/v1/item-created.json" {
		t.Fatalf("declarations stored before the prefix must stay verbatim, got %q", first.Schema)
	}
	second, _ := snap.Get("itemDeleted")
	if second.Schema != "https://schemas.example.com/inventory/v1/item-deleted.json" {
		t.Fatalf("expected the prefix to be prepended, got %q", second.Schema)
	}
}

func TestRegistryConfigureMergesNonZeroFields(t *testing.T) {
	reg := NewRegistry()
	reg.Configure(Options{Title: "Inventory Service", ExchangePrefix: "v1/"})
	reg.Configure(Options{Description: "Publishes inventory lifecycle events."})
	reg.Configure(Options{Durability: Transient})

	opts := reg.Options()
	if opts.Title != "Inventory Service" || opts.Description != "Publishes inventory lifecycle events." {
		t.Fatalf("expected earlier fields to survive later calls, got %+v", opts)
	}
	if opts.ExchangePrefix != "v1/" || opts.Durability != Transient {
		t.Fatalf("unexpected options %+v", opts)
	}

	reg.Configure(Options{})
	if reg.Options() != opts {
		t.Fatalf("a zero-value Configure must change nothing, got %+v", reg.Options())
	}
}

func TestRegistrySnapshotDeepCopiesDeclarations(t *testing.T) {
	reg := newItemRegistry(t)

	first := reg.Snapshot()
	decl, ok := first.Get("itemCreated")
	if !ok {
		t.Fatal("expected the declaration in the snapshot")
	}
	decl.RoutingKey[0].Constant = "mutated"
	decl.Exchange = "mutated"

	second := reg.Snapshot()
	fresh, _ := second.Get("itemCreated")
	if fresh.Exchange != "item-created" || fresh.RoutingKey[0].Constant != "primary" {
		t.Fatalf("snapshots must not share declaration storage, got %+v", fresh)
	}

	if _, ok := second.Get("noSuchEntry"); ok {
		t.Fatal("unknown names must not resolve")
	}
}
