package loadorder

import (
	"testing"

	"github.com/loadforge/sorter/internal/metadata"
)

func desc(name string, isMaster bool, masters ...string) Descriptor {
	return Descriptor{
		Name:     name,
		IsMaster: isMaster,
		Masters:  masters,
		Metadata: metadata.Default(name),
	}
}

func TestBuildBaseGraph_MastersBeforeNonMasters(t *testing.T) {
	descriptors := []Descriptor{
		desc("Mod.esp", false),
		desc("Skyrim.esm", true),
	}

	g, err := buildBaseGraph(descriptors, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	master, _ := g.lookup("Skyrim.esm")
	nonMaster, _ := g.lookup("Mod.esp")

	found := false
	for _, v := range g.adj[master] {
		if v == nonMaster {
			found = true
		}
	}
	if !found {
		t.Error("expected edge from master to non-master")
	}
}

func TestBuildBaseGraph_HeaderMasterEdge(t *testing.T) {
	descriptors := []Descriptor{
		desc("Dependent.esp", false, "Required.esm"),
		desc("Required.esm", true),
	}

	g, err := buildBaseGraph(descriptors, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	required, _ := g.lookup("Required.esm")
	dependent, _ := g.lookup("Dependent.esp")

	found := false
	for _, v := range g.adj[required] {
		if v == dependent {
			found = true
		}
	}
	if !found {
		t.Error("expected edge from header master to dependent plugin")
	}
}

func TestBuildBaseGraph_MetadataLoadAfterEdge(t *testing.T) {
	a := desc("A.esp", false)
	b := desc("B.esp", false)
	b.Metadata.LoadAfter["a.esp"] = metadata.FileRef{Name: "A.esp"}

	g, err := buildBaseGraph([]Descriptor{a, b}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ai, _ := g.lookup("A.esp")
	bi, _ := g.lookup("B.esp")

	found := false
	for _, v := range g.adj[ai] {
		if v == bi {
			found = true
		}
	}
	if !found {
		t.Error("expected edge from A to B via load_after")
	}
}

func TestBuildBaseGraph_MissingReferenceIsSkipped(t *testing.T) {
	a := desc("A.esp", false)
	a.Metadata.LoadAfter["ghost.esp"] = metadata.FileRef{Name: "Ghost.esp"}

	g, err := buildBaseGraph([]Descriptor{a}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.keys) != 1 {
		t.Fatalf("expected 1 vertex, got %d", len(g.keys))
	}
}

func TestBuildBaseGraph_GroupAdjacencyEdges(t *testing.T) {
	a := desc("A.esp", false)
	a.Metadata.Group = "early"
	b := desc("B.esp", false)
	b.Metadata.Group = "late"

	groups := []metadata.GroupDef{
		{Name: "early"},
		{Name: "late", After: []string{"early"}},
	}

	g, err := buildBaseGraph([]Descriptor{a, b}, groups)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ai, _ := g.lookup("A.esp")
	bi, _ := g.lookup("B.esp")

	found := false
	for _, v := range g.adj[ai] {
		if v == bi {
			found = true
		}
	}
	if !found {
		t.Error("expected group-adjacency edge from early-group plugin to late-group plugin")
	}
}

func TestBuildBaseGraph_GroupCycleIsError(t *testing.T) {
	a := desc("A.esp", false)
	groups := []metadata.GroupDef{
		{Name: "default", After: []string{"other"}},
		{Name: "other", After: []string{"default"}},
	}

	_, err := buildBaseGraph([]Descriptor{a}, groups)
	if err == nil {
		t.Fatal("expected error for cyclic group definitions")
	}
}
