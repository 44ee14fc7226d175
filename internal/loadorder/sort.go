package loadorder

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/loadforge/sorter/internal/plugin"
)

// ErrUnsupportedLocale is returned when the locale argument to Sort isn't
// a parseable BCP-47 tag. It never affects the computed order — see
// DESIGN.md for why comparisons always use a fixed lowercase fold
// regardless of locale.
var ErrUnsupportedLocale = errors.New("unsupported locale")

// Sort computes a total load order for every plugin in snap, honoring
// header master dependencies, merged metadata constraints, propagated
// priorities, and FormID overlap tie-breaks (spec.md §2-§4). locale is
// parsed and validated as a BCP-47 tag but does not change how names are
// folded for comparison — folding stays a fixed lowercase to guarantee
// stability across machines with different locale data.
//
// Side effects on snap follow spec.md §4.6 exactly: snap's accumulated
// messages are cleared only after the graph has been successfully built
// and validated. If the sort fails, snap is left untouched — no messages
// cleared, no partial state retained.
func Sort(ctx context.Context, snap Snapshot, locale string) ([]string, error) {
	if _, err := language.Parse(locale); locale != "" && err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLocale, locale)
	}

	runID := uuid.NewString()

	if snap.Len() == 0 {
		log.Printf("sort[%s]: empty snapshot, nothing to order", runID)
		snap.ClearMessages()
		return []string{}, nil
	}

	descriptors := snap.Plugins()
	byKey := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byKey[foldName(d.Name)] = d
	}

	g, err := buildBaseGraph(descriptors, snap.GroupDefs())
	if err != nil {
		log.Printf("sort[%s]: failed building base graph: %v", runID, err)
		return nil, err
	}

	eff := propagatePriorities(g, byKey)
	overlaps := computeOverlaps(g, byKey)
	addPriorityEdges(g, byKey, eff, overlaps)
	addOverlapEdges(g, byKey, overlaps)

	order, err := topoSort(g, byKey, eff)
	if err != nil {
		log.Printf("sort[%s]: %v", runID, err)
		return nil, err
	}

	// The graph is now fully built and a valid linearization exists:
	// per spec.md §4.6, this is the point at which the collaborator's
	// prior messages are discarded and replaced with this run's own.
	snap.ClearMessages()
	for _, issue := range lintIssuesFor(ctx, order, byKey) {
		snap.AddMessage(issue)
	}

	log.Printf("sort[%s]: ordered %d plugins", runID, len(order))
	return order, nil
}

// lintIssuesFor runs the resulting order back through the same Analyzer
// the teacher's original lint-only endpoints still use, rather than
// re-implementing missing-master detection a second time. A wrong-order
// issue can never appear here — Sort just produced a linearization that
// respects every header-master edge — so only IssueMissingMaster survives
// the filter, rendered as an informational message for the caller.
func lintIssuesFor(ctx context.Context, order []string, byKey map[string]Descriptor) []string {
	files := make([]PluginFile, len(order))
	for i, name := range order {
		d := byKey[foldName(name)]
		masters := make([]plugin.Master, len(d.Masters))
		for j, m := range d.Masters {
			masters[j] = plugin.Master{Filename: m}
		}
		files[i] = PluginFile{
			Filename: d.Name,
			Header: &plugin.PluginHeader{
				Filename: d.Name,
				Flags:    plugin.PluginFlags{IsMaster: d.IsMaster},
				Masters:  masters,
			},
		}
	}

	result, err := NewAnalyzer().Analyze(ctx, files)
	if err != nil {
		log.Printf("lint: analyzer failed on sorted order: %v", err)
		return nil
	}

	messages := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		if issue.Type != IssueMissingMaster {
			continue
		}
		messages = append(messages, fmt.Sprintf("%s declares missing master %s", issue.Plugin, issue.RelatedPlugin))
	}
	return messages
}
