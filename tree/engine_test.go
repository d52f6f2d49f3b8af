package tree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTree() *Node {
	n := Set(Empty(), Path{"title"}, "Test")
	n = Set(n, Path{"wantToClose"}, true)
	n = Set(n, Path{"pojo", "wantToClose"}, false)
	n = Set(n, Path{"pojo", "pojo", "count"}, 3)
	n = Set(n, Path{"titles"}, []string{"a", "b"})
	return n
}

func TestMergeWithEmptyIsIdentity(t *testing.T) {
	trees := []*Node{Empty(), sampleTree(), FromMap(map[string]any{"a": map[string]any{"b": 1}})}
	for _, tr := range trees {
		if got := Merge(tr, Empty()); !got.Equal(tr) {
			t.Fatalf("merge(t, empty) = %v, want %v", got, tr)
		}
		if got := Merge(Empty(), tr); !got.Equal(tr) {
			t.Fatalf("merge(empty, t) = %v, want %v", got, tr)
		}
	}
}

func TestMergeOntoEmptyAppliesTombstones(t *testing.T) {
	diff := Diff(sampleTree(), Delete(sampleTree(), Path{"title"}))
	if v, _ := diff.Lookup("title"); !IsRemoved(v) {
		t.Fatalf("expected diff to mark title removed, got %v", diff)
	}
	if got := Merge(diff, Empty()); !got.Equal(diff) {
		t.Fatalf("merge(d, empty) must keep tombstones, got %v", got)
	}
	got := Merge(Empty(), diff)
	if !got.IsEmpty() {
		t.Fatalf("merge(empty, d) applies tombstones and should be empty, got %v", got)
	}
}

func TestDiffOfSelfIsEmpty(t *testing.T) {
	tr := sampleTree()
	if got := Diff(tr, tr); !got.IsEmpty() {
		t.Fatalf("expected empty diff, got %v", got)
	}
	clone := FromMap(tr.ToMap())
	if got := Diff(tr, clone); !got.IsEmpty() {
		t.Fatalf("expected empty diff against structural copy, got %v", got)
	}
}

func TestGetAfterSetReturnsValue(t *testing.T) {
	cases := []struct {
		name  string
		path  Path
		value any
	}{
		{name: "top level", path: Path{"title"}, value: "Other"},
		{name: "nested existing", path: Path{"pojo", "wantToClose"}, value: true},
		{name: "nested new", path: Path{"a", "b", "c"}, value: 1.5},
		{name: "replace leaf with deeper path", path: Path{"title", "x"}, value: "deep"},
		{name: "slice", path: Path{"titles"}, value: []string{"z"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := Set(sampleTree(), tc.path, tc.value)
			got, ok := Get(n, tc.path)
			if !ok {
				t.Fatalf("expected value at %s", tc.path)
			}
			if !Equal(got, tc.value) {
				t.Fatalf("expected %v, got %v", tc.value, got)
			}
		})
	}
}

func TestGetMissingStopsAtFirstAbsentKey(t *testing.T) {
	n := sampleTree()
	if _, ok := Get(n, Path{"missing", "deeper", "still"}); ok {
		t.Fatalf("expected missing path to be absent")
	}
	if _, ok := Get(n, Path{"title", "length"}); ok {
		t.Fatalf("expected descent through leaf to be absent")
	}
}

func TestSetDoesNotChangeInput(t *testing.T) {
	before := sampleTree()
	snapshot := before.ToMap()
	_ = Set(before, Path{"pojo", "wantToClose"}, true)
	_ = Set(before, Path{"title"}, "changed")
	if diff := cmp.Diff(snapshot, before.ToMap()); diff != "" {
		t.Fatalf("input tree mutated (-before +after):\n%s", diff)
	}
}

func TestSetSharesUntouchedSubtrees(t *testing.T) {
	base := sampleTree()
	next := Set(base, Path{"title"}, "Other")
	left, _ := base.Lookup("pojo")
	right, _ := next.Lookup("pojo")
	if left.(*Node) != right.(*Node) {
		t.Fatalf("expected untouched subtree to be shared")
	}
}

func TestMergeIsRightBiasedAndRecursive(t *testing.T) {
	a := FromMap(map[string]any{
		"title": "a",
		"pojo":  map[string]any{"title": "inner", "wantToClose": false},
		"keep":  1,
	})
	b := FromMap(map[string]any{
		"title": "b",
		"pojo":  map[string]any{"wantToClose": true},
	})
	got := Merge(a, b).ToMap()
	want := map[string]any{
		"title": "b",
		"pojo":  map[string]any{"title": "inner", "wantToClose": true},
		"keep":  1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeIsAssociative(t *testing.T) {
	a := FromMap(map[string]any{"x": 1, "n": map[string]any{"a": 1, "b": 1}})
	b := FromMap(map[string]any{"y": 2, "n": map[string]any{"b": 2, "c": 2}})
	c := FromMap(map[string]any{"x": 3, "n": map[string]any{"c": 3, "d": map[string]any{"e": 3}}})
	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))
	if !left.Equal(right) {
		t.Fatalf("merge is not associative: %v vs %v", left, right)
	}
}

func TestMergeTreatsPlainMapAsLeaf(t *testing.T) {
	a := Set(Empty(), Path{"myMap"}, map[string]string{"a": "1"})
	b := Set(Empty(), Path{"myMap"}, map[string]string{"b": "2"})
	got, _ := Get(Merge(a, b), Path{"myMap"})
	if diff := cmp.Diff(map[string]string{"b": "2"}, got); diff != "" {
		t.Fatalf("plain map should be replaced, not merged (-want +got):\n%s", diff)
	}
}

func TestDiffRecordsChangesAndRemovals(t *testing.T) {
	a := FromMap(map[string]any{
		"same":    "x",
		"changed": "old",
		"gone":    true,
		"pojo":    map[string]any{"wantToClose": false, "title": "t"},
	})
	b := FromMap(map[string]any{
		"same":    "x",
		"changed": "new",
		"added":   1,
		"pojo":    map[string]any{"wantToClose": true, "title": "t"},
	})
	d := Diff(a, b)

	if v, _ := d.Lookup("gone"); !IsRemoved(v) {
		t.Fatalf("expected removed marker for gone, got %v", v)
	}
	if _, ok := d.Lookup("same"); ok {
		t.Fatalf("expected equal key to be omitted")
	}
	if v, _ := Get(d, Path{"changed"}); v != "new" {
		t.Fatalf("expected changed=new, got %v", v)
	}
	if v, _ := Get(d, Path{"pojo", "wantToClose"}); v != true {
		t.Fatalf("expected nested diff, got %v", v)
	}
	if _, ok := Get(d, Path{"pojo", "title"}); ok {
		t.Fatalf("expected unchanged nested key to be omitted")
	}
}

func TestMergeOfDiffRebuildsTarget(t *testing.T) {
	a := sampleTree()
	b := Set(Delete(a, Path{"titles"}), Path{"pojo", "pojo", "count"}, 4)
	b = Set(b, Path{"extra", "flag"}, true)
	if got := Merge(a, Diff(a, b)); !got.Equal(b) {
		t.Fatalf("merge(a, diff(a, b)) = %v, want %v", got, b)
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	n := Delete(sampleTree(), Path{"pojo", "wantToClose"})
	if _, ok := Get(n, Path{"pojo", "wantToClose"}); ok {
		t.Fatalf("expected key to be deleted")
	}
	if _, ok := Get(n, Path{"pojo", "pojo", "count"}); !ok {
		t.Fatalf("expected sibling to survive delete")
	}
}

func TestUpdateUsesFallbackWhenAbsent(t *testing.T) {
	n := Update(Empty(), Path{"currentPage"}, 0, func(v any) any { return v.(int) + 1 })
	n = Update(n, Path{"currentPage"}, 0, func(v any) any { return v.(int) + 1 })
	if v, _ := Get(n, Path{"currentPage"}); v != 2 {
		t.Fatalf("expected 2, got %v", v)
	}
}

func TestVisitIsPreOrderInKeyOrder(t *testing.T) {
	var got []string
	Visit(sampleTree(), func(path string, _ any) {
		got = append(got, path)
	})
	want := []string{
		"pojo",
		"pojo.pojo",
		"pojo.pojo.count",
		"pojo.wantToClose",
		"title",
		"titles",
		"wantToClose",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("visit order mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyPathPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrEmptyPath) {
			t.Fatalf("expected ErrEmptyPath panic, got %v", r)
		}
	}()
	Set(Empty(), nil, 1)
}

func TestHashFollowsEquality(t *testing.T) {
	a := sampleTree()
	b := FromMap(a.ToMap())
	if a.Hash() != b.Hash() {
		t.Fatalf("equal trees must hash equally")
	}
	c := Set(a, Path{"pojo", "wantToClose"}, true)
	if a.Hash() == c.Hash() {
		t.Fatalf("expected different hash after change")
	}
}

type money struct {
	Amount   *int
	currency string
}

func TestHashFollowsEqualityForLeafStructs(t *testing.T) {
	five, alsoFive := 5, 5
	a := Set(Empty(), Path{"price"}, money{Amount: &five, currency: "EUR"})
	b := Set(Empty(), Path{"price"}, money{Amount: &alsoFive, currency: "EUR"})
	if !a.Equal(b) {
		t.Fatalf("expected equal trees")
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("equal leaf structs behind distinct pointers must hash equally")
	}

	stored, _ := Get(a, Path{"price"})
	again := Set(Empty(), Path{"price"}, stored)
	if !again.Equal(a) || again.Hash() != a.Hash() {
		t.Fatalf("expected a copied leaf to keep the hash")
	}

	other := Set(Empty(), Path{"price"}, money{Amount: &five, currency: "USD"})
	if other.Hash() == a.Hash() {
		t.Fatalf("expected unexported fields to contribute to the hash")
	}
}

func TestDeleteOfAbsentPathIsNoop(t *testing.T) {
	base := sampleTree()
	if got := Delete(base, Path{"missing", "key"}); got != base {
		t.Fatalf("expected absent delete to return the input, got %v", got)
	}
}

func TestReplaceDiscardsPreviousNode(t *testing.T) {
	base := Set(Empty(), Path{"name", "firstname"}, "Foo")
	base = Set(base, Path{"name", "lastname"}, "Bar")
	incoming := FromMap(map[string]any{"firstname": "F"})

	merged := Set(base, Path{"name"}, incoming)
	if v, _ := Get(merged, Path{"name", "lastname"}); v != "Bar" {
		t.Fatalf("expected Set to merge nodes, got %v", merged)
	}
	replaced := Replace(base, Path{"name"}, incoming)
	if _, ok := Get(replaced, Path{"name", "lastname"}); ok {
		t.Fatalf("expected Replace to drop previous entries, got %v", replaced)
	}
}
