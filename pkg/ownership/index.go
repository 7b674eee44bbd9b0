// Package ownership exposes the precomputed sub-agent ownership index.
//
// The index is built offline from historical summon events and
// consumed here read-only: it maps sub-agent names to the actor that
// owns them. Sub-agent identifiers carry a volatile per-summon numeric
// suffix ("Felhunter-12345") that is stripped before comparison.
package ownership

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Index is the immutable sub-agent → owner mapping. Safe for
// concurrent use by many resolution workers.
type Index struct {
	// owners maps normalized sub-agent base name to owner actor name.
	owners map[string]string

	// byOwner maps owner name to its known sub-agent base names.
	byOwner map[string][]string
}

// indexFile matches the on-disk player_pet_index.json layout.
type indexFile struct {
	PlayerPets map[string]struct {
		PetNames []string `json:"pet_names"`
	} `json:"player_pets"`
	PetLookup map[string]string `json:"pet_lookup"`
}

// Load reads an ownership index from a JSON file.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ownership: read index: %w", err)
	}
	return Parse(data)
}

// Parse decodes an ownership index from JSON bytes.
func Parse(data []byte) (*Index, error) {
	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ownership: decode index: %w", err)
	}

	idx := &Index{
		owners:  make(map[string]string),
		byOwner: make(map[string][]string),
	}

	for owner, entry := range file.PlayerPets {
		ownerBase := BaseName(owner)
		for _, pet := range entry.PetNames {
			base := BaseName(pet)
			idx.owners[base] = ownerBase
			idx.byOwner[ownerBase] = append(idx.byOwner[ownerBase], base)
		}
	}

	// The flat lookup table may carry entries the per-player map lacks.
	for pet, owner := range file.PetLookup {
		base := BaseName(pet)
		if _, seen := idx.owners[base]; !seen {
			ownerBase := BaseName(owner)
			idx.owners[base] = ownerBase
			idx.byOwner[ownerBase] = append(idx.byOwner[ownerBase], base)
		}
	}

	return idx, nil
}

// New builds an index from an explicit sub-agent → owner map. Used by
// tests and by callers that assemble facts elsewhere.
func New(facts map[string]string) *Index {
	idx := &Index{
		owners:  make(map[string]string, len(facts)),
		byOwner: make(map[string][]string),
	}
	for pet, owner := range facts {
		base := BaseName(pet)
		ownerBase := BaseName(owner)
		idx.owners[base] = ownerBase
		idx.byOwner[ownerBase] = append(idx.byOwner[ownerBase], base)
	}
	return idx
}

// Owner returns the owning actor for a sub-agent identifier, trying
// the exact name first and then the suffix-normalized form.
func (x *Index) Owner(subAgent string) (string, bool) {
	if owner, ok := x.owners[subAgent]; ok {
		return owner, true
	}
	owner, ok := x.owners[BaseName(subAgent)]
	return owner, ok
}

// OwnedBy reports whether a sub-agent identifier resolves to the given
// owner after normalization.
func (x *Index) OwnedBy(subAgent, owner string) bool {
	got, ok := x.Owner(subAgent)
	return ok && got == BaseName(owner)
}

// SubAgents returns the known sub-agent base names for an owner.
func (x *Index) SubAgents(owner string) []string {
	return x.byOwner[BaseName(owner)]
}

// Size returns the number of known sub-agents.
func (x *Index) Size() int {
	return len(x.owners)
}

// BaseName strips the volatile "-<suffix>" part of an identifier:
// "Felhunter-12345" → "Felhunter", "Kaelys-Tichondrius-US" → "Kaelys".
func BaseName(id string) string {
	if i := strings.IndexByte(id, '-'); i >= 0 {
		return id[:i]
	}
	return id
}
