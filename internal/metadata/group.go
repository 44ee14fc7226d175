package metadata

import (
	"fmt"
	"sort"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

// ResolveGroups topologically orders a set of group definitions by their
// After relationships and returns the resolved order, earliest-loading
// group first. Any group named in an After list but not itself defined is
// treated as an implicit group with no dependencies of its own (mirrors
// the sorter's missing-plugin-reference policy: silently tolerated).
//
// A cycle among groups is reported as invalid_metadata: unlike a plugin
// cycle, which is a hard sort failure discovered during linearization, a
// group cycle is a metadata authoring error caught up front, before any
// plugin graph is built.
func ResolveGroups(defs []GroupDef) ([]string, error) {
	byName := make(map[string]GroupDef, len(defs))
	names := make([]string, 0, len(defs)+1)
	seen := map[string]bool{DefaultGroup: true}
	names = append(names, DefaultGroup)

	for _, d := range defs {
		key := d.Name
		if key == "" {
			continue
		}
		byName[key] = d
		if !seen[key] {
			seen[key] = true
			names = append(names, key)
		}
		for _, a := range d.After {
			if a != "" && !seen[a] {
				seen[a] = true
				names = append(names, a)
			}
		}
	}
	sort.Strings(names)

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(names))
	var order []string
	var errs *multierror.Error

	var visit func(name string, path []string) bool
	visit = func(name string, path []string) bool {
		if color[name] == black {
			return true
		}
		if color[name] == gray {
			errs = multierror.Append(errs, fmt.Errorf(
				"invalid_metadata: group cycle: %s -> %s", strings.Join(path, " -> "), name))
			return false
		}
		color[name] = gray
		for _, dep := range byName[name].After {
			if dep == "" {
				continue
			}
			if !visit(dep, append(path, name)) {
				return false
			}
		}
		color[name] = black
		order = append(order, name)
		return true
	}

	for _, n := range names {
		if color[n] == white {
			visit(n, nil)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return order, nil
}
