// Package burger holds the in-progress burger being composed.
//
// The builder is client-authoritative: it is never synced to the server or
// persisted across runs. Every filling entry carries a synthetic identity
// distinct from its catalog id, so the same catalog item can be added twice
// and still be removed or reordered individually.
package burger

import (
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

// Entry is one filling in the ordered sequence.
type Entry struct {
	model.Ingredient
	EntryID string // synthetic identity, unique per entry
}

// Builder is the ordered construction list: at most one bun plus fillings.
type Builder struct {
	mu       sync.Mutex
	bun      *model.Ingredient
	fillings []Entry
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// SetBun replaces the single bun slot unconditionally.
func (b *Builder) SetBun(ing model.Ingredient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cpy := ing
	b.bun = &cpy
}

// AddIngredient appends ing to the sequence under a fresh synthetic identity
// and returns the created entry. It never touches the bun slot, even when
// ing's catalog type is "bun"; routing that decision is the caller's job.
func (b *Builder) AddIngredient(ing model.Ingredient) Entry {
	id, _ := uuid.NewV4()
	e := Entry{Ingredient: ing, EntryID: id.String()}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.fillings = append(b.fillings, e)
	return e
}

// RemoveIngredient drops the entry with the given synthetic identity.
// Unknown ids are a no-op.
func (b *Builder) RemoveIngredient(entryID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.fillings {
		if b.fillings[i].EntryID == entryID {
			b.fillings = append(b.fillings[:i], b.fillings[i+1:]...)
			return
		}
	}
}

// MoveIngredient removes the entry at from and reinserts it at to in one
// pass. Out-of-range indexes are a no-op; there is never an observable
// intermediate state with the entry missing.
func (b *Builder) MoveIngredient(from, to int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.fillings)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	e := b.fillings[from]
	b.fillings = append(b.fillings[:from], b.fillings[from+1:]...)
	b.fillings = append(b.fillings[:to], append([]Entry{e}, b.fillings[to:]...)...)
}

// Clear resets to the empty initial state.
func (b *Builder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bun = nil
	b.fillings = nil
}

// Bun returns a copy of the bun slot, or nil when empty.
func (b *Builder) Bun() *model.Ingredient {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bun == nil {
		return nil
	}
	cpy := *b.bun
	return &cpy
}

// Fillings returns a copy of the ordered filling sequence.
func (b *Builder) Fillings() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.fillings))
	copy(out, b.fillings)
	return out
}

// TotalPrice counts the bun twice (top and bottom slice) and every filling
// entry once, duplicates included.
func (b *Builder) TotalPrice() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	if b.bun != nil {
		total += b.bun.Price * 2
	}
	for i := range b.fillings {
		total += b.fillings[i].Price
	}
	return total
}

// IngredientIDs flattens the composition for order submission: bun id first
// and last, fillings between. Returns nil when the bun slot is empty since
// such a composition is not orderable.
func (b *Builder) IngredientIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bun == nil {
		return nil
	}
	ids := make([]string, 0, len(b.fillings)+2)
	ids = append(ids, b.bun.ID)
	for i := range b.fillings {
		ids = append(ids, b.fillings[i].ID)
	}
	ids = append(ids, b.bun.ID)
	return ids
}
