package migration

import (
	"sort"

	"github.com/storelift/migrator/internal/entities"
)

// IdentifierMap maps source entity ids to their resolved target ids for
// one entity kind. It lives only for the duration of a single pipeline
// execution; a resumed run rebuilds it from the ledger.
type IdentifierMap struct {
	kind entities.EntityKind
	ids  map[string]string
}

// NewIdentifierMap creates an empty map for one entity kind.
func NewIdentifierMap(kind entities.EntityKind) *IdentifierMap {
	return &IdentifierMap{kind: kind, ids: make(map[string]string)}
}

// Kind returns the entity kind this map covers.
func (m *IdentifierMap) Kind() entities.EntityKind {
	return m.kind
}

// Put records the target id resolved for a source id.
func (m *IdentifierMap) Put(sourceID, targetID string) {
	m.ids[sourceID] = targetID
}

// Lookup returns the target id for a source id.
func (m *IdentifierMap) Lookup(sourceID string) (string, bool) {
	targetID, ok := m.ids[sourceID]
	return targetID, ok
}

// Len returns the number of resolved identifiers.
func (m *IdentifierMap) Len() int {
	return len(m.ids)
}

// SourceIDs returns the mapped source ids in sorted order, so callers
// iterating the map produce deterministic remote-call sequences.
func (m *IdentifierMap) SourceIDs() []string {
	ids := make([]string, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
