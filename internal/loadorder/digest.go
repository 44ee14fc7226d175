package loadorder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/loadforge/sorter/internal/metadata"
)

// SnapshotDigest deterministically hashes everything that can affect a
// sort's output: every descriptor's name, master flag, master list, and
// FormID set; the merged metadata driving the graph; the group
// definitions; and the locale argument. Two calls to Sort with equal
// digests always produce byte-identical output, which is what lets
// SortCache serve a cached result instead of recomputing one.
func SnapshotDigest(descriptors []Descriptor, groupDefs []metadata.GroupDef, locale string) string {
	sorted := make([]Descriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.Slice(sorted, func(i, j int) bool {
		return foldName(sorted[i].Name) < foldName(sorted[j].Name)
	})

	h := sha256.New()
	fmt.Fprintf(h, "locale=%s\n", locale)

	for _, d := range sorted {
		fmt.Fprintf(h, "plugin=%s master=%v masters=%v\n", d.Name, d.IsMaster, d.Masters)

		ids := make([]uint32, 0, len(d.FormIDs))
		for id := range d.FormIDs {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		fmt.Fprintf(h, "formids=%v\n", ids)

		m := d.Metadata
		fmt.Fprintf(h, "priority=%d global=%v group=%s\n", m.Priority, m.PriorityIsGlobal, m.Group)
		fmt.Fprintf(h, "loadafter=%v\n", refKeys(m.LoadAfter))
		fmt.Fprintf(h, "requirements=%v\n", refKeys(m.Requirements))
		fmt.Fprintf(h, "incompatibilities=%v\n", refKeys(m.Incompatibilities))
	}

	groups := make([]metadata.GroupDef, len(groupDefs))
	copy(groups, groupDefs)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, gd := range groups {
		fmt.Fprintf(h, "group=%s after=%v\n", gd.Name, foldedSorted(gd.After))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func foldedSorted(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = foldName(n)
	}
	sort.Strings(out)
	return out
}

func refKeys(refs map[string]metadata.FileRef) []string {
	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
