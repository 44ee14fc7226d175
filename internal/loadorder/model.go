package loadorder

import (
	"strings"

	"github.com/loadforge/sorter/internal/metadata"
)

// Descriptor is the immutable, per-sort-run view of one plugin: its
// header facts plus its merged metadata. Descriptors are built once at
// the start of Sort and discarded when it returns.
type Descriptor struct {
	// Name is the canonical (original-case) plugin name.
	Name string
	// IsMaster is true for master-flagged plugins; masters sort strictly
	// before non-masters.
	IsMaster bool
	// Masters is the ordered list of header-declared master dependencies.
	Masters []string
	// FormIDs is the set of record identifiers this plugin defines or
	// overrides, used only to detect overlap with other plugins.
	FormIDs map[uint32]struct{}
	// Metadata is this plugin's merged masterlist+userlist record.
	Metadata metadata.Metadata
}

// foldName is the canonical fold used for every name comparison in the
// sorter: a fixed ASCII/Unicode lowercase, never a locale-sensitive
// collation. A locale-aware fold would make the sort's output depend on
// the executing machine's locale data, breaking the stability invariant
// that identical inputs always produce identical output. See DESIGN.md
// for why the locale argument to Sort is still accepted and validated.
func foldName(name string) string {
	return strings.ToLower(name)
}

// Snapshot is the read-only collaborator the sorter consumes: plugin
// descriptors plus a mutable, caller-owned message list for diagnostics.
type Snapshot interface {
	// Plugins returns every descriptor, in no particular order.
	Plugins() []Descriptor
	// Lookup finds a descriptor by case-insensitive name.
	Lookup(name string) (Descriptor, bool)
	// Len reports how many plugins the snapshot carries.
	Len() int

	// Messages returns the collaborator's current diagnostic messages.
	Messages() []string
	// AddMessage appends an informational message.
	AddMessage(msg string)
	// ClearMessages discards every message the caller had accumulated.
	ClearMessages()

	// GroupDefs returns the merged masterlist+userlist group definitions
	// (names and their After relationships), used to resolve group-implied
	// load_after edges (SPEC_FULL.md §4.2.1).
	GroupDefs() []metadata.GroupDef
}

// MapSnapshot is the reference Snapshot implementation: an in-memory map
// from folded name to Descriptor, built once from parsed plugin headers
// and merged metadata.
type MapSnapshot struct {
	byName    map[string]Descriptor
	order     []string // insertion order, for deterministic Plugins()
	messages  []string
	groupDefs []metadata.GroupDef
}

// NewSnapshot builds a snapshot from descriptors, keyed by case-insensitive
// name. Descriptors with duplicate folded names overwrite earlier ones;
// callers are expected to have already rejected duplicates (spec invariant:
// plugin names are unique under case-insensitive comparison) before this
// is called from an HTTP boundary.
func NewSnapshot(descriptors []Descriptor, groupDefs []metadata.GroupDef) *MapSnapshot {
	s := &MapSnapshot{
		byName:    make(map[string]Descriptor, len(descriptors)),
		order:     make([]string, 0, len(descriptors)),
		groupDefs: groupDefs,
	}
	for _, d := range descriptors {
		key := foldName(d.Name)
		if _, exists := s.byName[key]; !exists {
			s.order = append(s.order, key)
		}
		s.byName[key] = d
	}
	return s
}

func (s *MapSnapshot) Plugins() []Descriptor {
	result := make([]Descriptor, 0, len(s.order))
	for _, key := range s.order {
		result = append(result, s.byName[key])
	}
	return result
}

func (s *MapSnapshot) Lookup(name string) (Descriptor, bool) {
	d, ok := s.byName[foldName(name)]
	return d, ok
}

func (s *MapSnapshot) Len() int { return len(s.order) }

func (s *MapSnapshot) Messages() []string {
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *MapSnapshot) AddMessage(msg string) {
	s.messages = append(s.messages, msg)
}

func (s *MapSnapshot) ClearMessages() {
	s.messages = nil
}

func (s *MapSnapshot) GroupDefs() []metadata.GroupDef {
	return s.groupDefs
}
