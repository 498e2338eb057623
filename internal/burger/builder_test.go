package burger

import (
	"testing"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

func bun() model.Ingredient {
	return model.Ingredient{ID: "bun-1", Name: "Fluorescent bun", Type: model.TypeBun, Price: 1255}
}

func filling(id string, price int) model.Ingredient {
	return model.Ingredient{ID: id, Name: "Filling " + id, Type: model.TypeMain, Price: price}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestBuilder_BunSlotUnaffectedByFillingOps(t *testing.T) {
	t.Parallel()
	b := New()
	b.SetBun(bun())

	e1 := b.AddIngredient(filling("f1", 100))
	b.AddIngredient(filling("f2", 200))
	if got := len(b.Fillings()); got != 2 {
		t.Fatalf("fillings = %d, want 2", got)
	}

	b.MoveIngredient(0, 1)
	b.RemoveIngredient(e1.EntryID)
	b.RemoveIngredient("not-there") // no-op

	if got := len(b.Fillings()); got != 1 {
		t.Fatalf("fillings = %d, want 1", got)
	}
	if got := b.Bun(); got == nil || got.ID != "bun-1" {
		t.Fatalf("bun slot disturbed: %+v", got)
	}
}

func TestBuilder_SetBunReplacesAtomically(t *testing.T) {
	t.Parallel()
	b := New()
	b.SetBun(bun())
	b.SetBun(model.Ingredient{ID: "bun-2", Type: model.TypeBun, Price: 988})
	if got := b.Bun(); got.ID != "bun-2" {
		t.Fatalf("bun = %q, want bun-2", got.ID)
	}
}

func TestBuilder_AddBunTypedIngredientGoesToSequence(t *testing.T) {
	t.Parallel()
	b := New()
	// The builder does not route by catalog type; that is the caller's call.
	b.AddIngredient(bun())
	if b.Bun() != nil {
		t.Fatalf("AddIngredient must not populate the bun slot")
	}
	if got := len(b.Fillings()); got != 1 {
		t.Fatalf("fillings = %d, want 1", got)
	}
}

func TestBuilder_DuplicateEntriesAreIndividuallyRemovable(t *testing.T) {
	t.Parallel()
	b := New()
	e1 := b.AddIngredient(filling("f1", 90))
	e2 := b.AddIngredient(filling("f1", 90))
	if e1.EntryID == e2.EntryID {
		t.Fatalf("duplicate catalog items must get distinct entry ids")
	}

	b.RemoveIngredient(e1.EntryID)
	left := b.Fillings()
	if len(left) != 1 || left[0].EntryID != e2.EntryID {
		t.Fatalf("wrong entry removed: %+v", left)
	}
}

func TestBuilder_MoveIsItsOwnInverse(t *testing.T) {
	t.Parallel()
	b := New()
	for _, id := range []string{"f1", "f2", "f3", "f4"} {
		b.AddIngredient(filling(id, 10))
	}
	before := ids(b.Fillings())

	b.MoveIngredient(0, 3)
	after := ids(b.Fillings())
	if after[3] != "f1" || after[0] != "f2" {
		t.Fatalf("move(0,3) order = %v", after)
	}

	b.MoveIngredient(3, 0)
	restored := ids(b.Fillings())
	for i := range before {
		if before[i] != restored[i] {
			t.Fatalf("move(0,3)+move(3,0) did not restore order: %v vs %v", before, restored)
		}
	}

	// Out-of-range moves are no-ops.
	b.MoveIngredient(-1, 2)
	b.MoveIngredient(1, 99)
	if got := ids(b.Fillings()); got[1] != before[1] {
		t.Fatalf("out-of-range move mutated sequence: %v", got)
	}
}

func TestBuilder_TotalPrice(t *testing.T) {
	t.Parallel()
	b := New()
	if got := b.TotalPrice(); got != 0 {
		t.Fatalf("empty price = %d, want 0", got)
	}

	b.SetBun(bun()) // 1255
	b.AddIngredient(filling("f1", 424))
	b.AddIngredient(filling("f1", 424)) // duplicate priced independently
	if got := b.TotalPrice(); got != 3358 {
		t.Fatalf("total = %d, want 3358", got)
	}
}

func TestBuilder_IngredientIDs(t *testing.T) {
	t.Parallel()
	b := New()
	b.AddIngredient(filling("f1", 10))
	if got := b.IngredientIDs(); got != nil {
		t.Fatalf("composition without a bun must not be orderable, got %v", got)
	}

	b.SetBun(bun())
	b.AddIngredient(filling("f2", 10))
	got := b.IngredientIDs()
	want := []string{"bun-1", "f1", "f2", "bun-1"}
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
}

func TestBuilder_Clear(t *testing.T) {
	t.Parallel()
	b := New()
	b.SetBun(bun())
	b.AddIngredient(filling("f1", 10))
	b.Clear()
	if b.Bun() != nil || len(b.Fillings()) != 0 || b.TotalPrice() != 0 {
		t.Fatalf("Clear left state behind")
	}
}
