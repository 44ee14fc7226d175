// Package metadata decodes masterlist/userlist entries and merges them
// into the effective per-plugin metadata the load-order sorter consumes.
package metadata

// FileRef identifies a plugin referenced by a metadata entry, optionally
// with a display name and a condition string (conditions are carried
// through unevaluated — evaluating them against game state is out of
// scope for the sorter).
type FileRef struct {
	Name      string `yaml:"name" json:"name"`
	Display   string `yaml:"display,omitempty" json:"display,omitempty"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// GroupDef is a named ordering bucket and the groups it must load after.
type GroupDef struct {
	Name  string   `yaml:"name" json:"name"`
	After []string `yaml:"after,omitempty" json:"after,omitempty"`
}

// RawEntry is one plugin's metadata as declared in a single list
// (masterlist or userlist), before merging the two together.
type RawEntry struct {
	Name              string    `yaml:"name" json:"name"`
	LoadAfter         []FileRef `yaml:"after,omitempty" json:"after,omitempty"`
	Requirements      []FileRef `yaml:"req,omitempty" json:"req,omitempty"`
	Incompatibilities []FileRef `yaml:"inc,omitempty" json:"inc,omitempty"`
	Priority          *int32    `yaml:"priority,omitempty" json:"priority,omitempty"`
	PriorityIsGlobal  *bool     `yaml:"global,omitempty" json:"global,omitempty"`
	Group             string    `yaml:"group,omitempty" json:"group,omitempty"`
}

// RawList is the decoded shape of a single masterlist or userlist file.
type RawList struct {
	Plugins []RawEntry `yaml:"plugins" json:"plugins"`
	Groups  []GroupDef `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// Metadata is the effective, merged per-plugin record the sorter uses.
// Set-valued fields are unions of masterlist and userlist; scalar fields
// take the userlist value whenever the userlist declares one.
type Metadata struct {
	Name              string
	LoadAfter         map[string]FileRef
	Requirements      map[string]FileRef
	Incompatibilities map[string]FileRef
	Priority          int32
	PriorityIsGlobal  bool
	Group             string
}

// DefaultGroup is the implicit group every plugin belongs to when it
// declares none. ResolveGroups always includes it; other groups may list
// it in their After, and it has dependencies only if a group definition
// named "default" gives it some.
const DefaultGroup = "default"

func newMetadata(name string) Metadata {
	return Metadata{
		Name:              name,
		LoadAfter:         make(map[string]FileRef),
		Requirements:      make(map[string]FileRef),
		Incompatibilities: make(map[string]FileRef),
		Group:             DefaultGroup,
	}
}

// Default returns the empty metadata record for a plugin that appears in
// neither the masterlist nor the userlist: no constraints, default
// priority, and membership in DefaultGroup.
func Default(name string) Metadata {
	return newMetadata(name)
}
