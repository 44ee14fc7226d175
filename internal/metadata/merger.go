package metadata

import (
	"fmt"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

// Merge combines masterlist and userlist entries into one effective
// Metadata record per plugin. Userlist values replace masterlist values
// field-by-field for scalars (priority, priority_is_global, group);
// set-valued fields (load_after, requirements, incompatibilities) are
// unioned across both lists.
//
// Every entry in both lists is validated first; a self-referencing entry
// is invalid_metadata. All such failures are collected and returned
// together via a *multierror.Error rather than stopping at the first one,
// so a user can fix every problem in a single pass. On any validation
// failure the returned map is nil — the merger does not partially merge.
func Merge(masterlist, userlist RawList) (map[string]Metadata, error) {
	var errs *multierror.Error

	validate := func(list []RawEntry) {
		for _, e := range list {
			if err := validateEntry(e); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	validate(masterlist.Plugins)
	validate(userlist.Plugins)

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	merged := make(map[string]Metadata)

	apply := func(e RawEntry) {
		key := strings.ToLower(e.Name)
		m, ok := merged[key]
		if !ok {
			m = newMetadata(e.Name)
		}

		for _, ref := range e.LoadAfter {
			m.LoadAfter[strings.ToLower(ref.Name)] = ref
		}
		for _, ref := range e.Requirements {
			m.Requirements[strings.ToLower(ref.Name)] = ref
		}
		for _, ref := range e.Incompatibilities {
			m.Incompatibilities[strings.ToLower(ref.Name)] = ref
		}

		// Scalars: userlist overrides masterlist; within a single list a
		// later entry for the same plugin overrides an earlier one too,
		// matching how the lists are applied in declaration order.
		if e.Priority != nil {
			m.Priority = *e.Priority
		}
		if e.PriorityIsGlobal != nil {
			m.PriorityIsGlobal = *e.PriorityIsGlobal
		}
		if e.Group != "" {
			m.Group = e.Group
		}

		merged[key] = m
	}

	for _, e := range masterlist.Plugins {
		apply(e)
	}
	for _, e := range userlist.Plugins {
		apply(e)
	}

	return merged, nil
}

// MergeGroupDefs combines masterlist and userlist group definitions.
// A userlist group with the same name as a masterlist group replaces its
// After list entirely (the same scalar-override rule Merge applies to
// priority and group), rather than unioning the two.
func MergeGroupDefs(masterlist, userlist []GroupDef) []GroupDef {
	order := make([]string, 0, len(masterlist)+len(userlist))
	byName := make(map[string]GroupDef, len(masterlist)+len(userlist))

	for _, g := range masterlist {
		if _, ok := byName[g.Name]; !ok {
			order = append(order, g.Name)
		}
		byName[g.Name] = g
	}
	for _, g := range userlist {
		if _, ok := byName[g.Name]; !ok {
			order = append(order, g.Name)
		}
		byName[g.Name] = g
	}

	out := make([]GroupDef, len(order))
	for i, name := range order {
		out[i] = byName[name]
	}
	return out
}

func validateEntry(e RawEntry) error {
	key := strings.ToLower(e.Name)
	if key == "" {
		return fmt.Errorf("invalid_metadata: entry has an empty plugin name")
	}

	for _, ref := range e.LoadAfter {
		if strings.ToLower(ref.Name) == key {
			return fmt.Errorf("invalid_metadata: %s declares itself as a load_after dependency", e.Name)
		}
	}
	for _, ref := range e.Requirements {
		if strings.ToLower(ref.Name) == key {
			return fmt.Errorf("invalid_metadata: %s declares itself as a requirement", e.Name)
		}
	}

	return nil
}
