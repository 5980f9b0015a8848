package assemble

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wcaarls/puc8a/pkg/reloc"
)

// SymbolTable records label addresses and pending relocations discovered
// during a single assembly pass. It is safe for concurrent use, mirroring
// the mutex-guarded accumulation style used elsewhere in this codebase
// for result tables gathered while walking a stream — SymbolTable plays
// the same role for an assembler instead of a search.
type SymbolTable struct {
	mu     sync.Mutex
	labels map[string]int
	relocs []reloc.Relocation
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{labels: map[string]int{}}
}

// Define records label's address. A label defined twice is a link error.
func (t *SymbolTable) Define(label string, address int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.labels[label]; exists {
		return fmt.Errorf("assemble: label %q defined more than once", label)
	}
	t.labels[label] = address
	return nil
}

// AddReloc records a pending relocation to be resolved once every label
// in the translation unit has been defined.
func (t *SymbolTable) AddReloc(r reloc.Relocation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.relocs = append(t.relocs, r)
}

// Relocs returns a copy of the pending relocations, sorted by address —
// useful for deterministic diagnostics and golden-output tests.
func (t *SymbolTable) Relocs() []reloc.Relocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]reloc.Relocation, len(t.relocs))
	copy(out, t.relocs)
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Resolve looks up a label's address, failing if it was never defined —
// the single-translation-unit analogue of an undefined-symbol link error.
func (t *SymbolTable) Resolve(label string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	addr, ok := t.labels[label]
	if !ok {
		return 0, fmt.Errorf("assemble: undefined label %q", label)
	}
	return addr, nil
}
