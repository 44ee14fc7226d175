package metadata

import (
	"strings"
	"testing"
)

func ptrInt32(v int32) *int32 { return &v }
func ptrBool(v bool) *bool    { return &v }

func TestMerge_UnionsSetFields(t *testing.T) {
	masterlist := RawList{
		Plugins: []RawEntry{
			{Name: "Blank.esp", LoadAfter: []FileRef{{Name: "Skyrim.esm"}}},
		},
	}
	userlist := RawList{
		Plugins: []RawEntry{
			{Name: "Blank.esp", LoadAfter: []FileRef{{Name: "Update.esm"}}},
		},
	}

	merged, err := Merge(masterlist, userlist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := merged["blank.esp"]
	if len(m.LoadAfter) != 2 {
		t.Fatalf("expected 2 load_after entries, got %d: %+v", len(m.LoadAfter), m.LoadAfter)
	}
	if _, ok := m.LoadAfter["skyrim.esm"]; !ok {
		t.Error("expected masterlist load_after to survive the union")
	}
	if _, ok := m.LoadAfter["update.esm"]; !ok {
		t.Error("expected userlist load_after to be added")
	}
}

func TestMerge_UserlistOverridesScalarFields(t *testing.T) {
	masterlist := RawList{
		Plugins: []RawEntry{
			{Name: "Blank.esp", Priority: ptrInt32(5), PriorityIsGlobal: ptrBool(false)},
		},
	}
	userlist := RawList{
		Plugins: []RawEntry{
			{Name: "Blank.esp", Priority: ptrInt32(-100000), PriorityIsGlobal: ptrBool(true)},
		},
	}

	merged, err := Merge(masterlist, userlist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := merged["blank.esp"]
	if m.Priority != -100000 {
		t.Errorf("expected userlist priority to win, got %d", m.Priority)
	}
	if !m.PriorityIsGlobal {
		t.Error("expected userlist global flag to win")
	}
}

func TestMerge_MasterlistScalarSurvivesWhenUserlistSilent(t *testing.T) {
	masterlist := RawList{
		Plugins: []RawEntry{{Name: "Blank.esp", Priority: ptrInt32(2)}},
	}
	userlist := RawList{
		Plugins: []RawEntry{{Name: "Blank.esp", LoadAfter: []FileRef{{Name: "Other.esp"}}}},
	}

	merged, err := Merge(masterlist, userlist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if merged["blank.esp"].Priority != 2 {
		t.Errorf("expected masterlist priority to be kept, got %d", merged["blank.esp"].Priority)
	}
}

func TestMerge_SelfReferenceIsInvalid(t *testing.T) {
	userlist := RawList{
		Plugins: []RawEntry{
			{Name: "A.esp", LoadAfter: []FileRef{{Name: "a.esp"}}},
			{Name: "B.esp", Requirements: []FileRef{{Name: "B.ESP"}}},
		},
	}

	_, err := Merge(RawList{}, userlist)
	if err == nil {
		t.Fatal("expected an error for self-referencing entries")
	}
	if !strings.Contains(err.Error(), "A.esp") || !strings.Contains(err.Error(), "B.esp") {
		t.Errorf("expected both invalid entries to be reported, got: %v", err)
	}
}

func TestMerge_EmptyInputsProduceEmptyMap(t *testing.T) {
	merged, err := Merge(RawList{}, RawList{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged) != 0 {
		t.Errorf("expected empty map, got %d entries", len(merged))
	}
}

func TestMerge_DefaultGroupWhenUnset(t *testing.T) {
	merged, err := Merge(RawList{Plugins: []RawEntry{{Name: "Blank.esp"}}}, RawList{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged["blank.esp"].Group != DefaultGroup {
		t.Errorf("expected default group, got %q", merged["blank.esp"].Group)
	}
}

func TestMergeGroupDefs_UserlistReplacesMasterlistGroup(t *testing.T) {
	masterlist := []GroupDef{{Name: "early", After: []string{"default"}}}
	userlist := []GroupDef{{Name: "early", After: []string{"default", "extra"}}}

	merged := MergeGroupDefs(masterlist, userlist)
	if len(merged) != 1 {
		t.Fatalf("expected 1 group, got %d", len(merged))
	}
	if len(merged[0].After) != 2 {
		t.Errorf("expected userlist's After list to win, got %v", merged[0].After)
	}
}

func TestMergeGroupDefs_PreservesInsertionOrder(t *testing.T) {
	masterlist := []GroupDef{{Name: "early"}, {Name: "mid"}}
	userlist := []GroupDef{{Name: "late"}}

	merged := MergeGroupDefs(masterlist, userlist)
	want := []string{"early", "mid", "late"}
	if len(merged) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(merged))
	}
	for i, name := range want {
		if merged[i].Name != name {
			t.Errorf("merged[%d].Name = %q, want %q", i, merged[i].Name, name)
		}
	}
}
