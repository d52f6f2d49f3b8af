package seq

import (
	"reflect"
	"testing"
)

func TestListIsPersistent(t *testing.T) {
	base := Of("foo", "bar")
	added := base.Add("baz")
	replaced := base.Set(0, "qux")
	removed := base.Remove(1)

	if !reflect.DeepEqual(base.Slice(), []string{"foo", "bar"}) {
		t.Fatalf("base changed: %v", base)
	}
	if !reflect.DeepEqual(added.Slice(), []string{"foo", "bar", "baz"}) {
		t.Fatalf("unexpected added list %v", added)
	}
	if !reflect.DeepEqual(replaced.Slice(), []string{"qux", "bar"}) {
		t.Fatalf("unexpected replaced list %v", replaced)
	}
	if !reflect.DeepEqual(removed.Slice(), []string{"foo"}) {
		t.Fatalf("unexpected removed list %v", removed)
	}
}

func TestFromSliceCopiesInput(t *testing.T) {
	items := []string{"a", "b"}
	list := FromSlice(items)
	items[0] = "z"
	if v, _ := list.At(0); v != "a" {
		t.Fatalf("list changed through caller slice: %v", list)
	}
	out := list.Slice()
	out[1] = "z"
	if v, _ := list.At(1); v != "b" {
		t.Fatalf("list changed through returned slice: %v", list)
	}
}

func TestZeroListIsEmpty(t *testing.T) {
	var list List[int]
	if !list.IsEmpty() || list.Slice() != nil {
		t.Fatalf("expected empty zero list")
	}
	if _, ok := list.At(0); ok {
		t.Fatalf("expected out of range")
	}
	if !list.Equal(Of[int]()) {
		t.Fatalf("expected zero list to equal empty list")
	}
}

func TestFilterAndRange(t *testing.T) {
	list := Of(1, 2, 3, 4).Filter(func(v int) bool { return v%2 == 0 })
	var seen []int
	list.Range(func(_ int, v int) bool {
		seen = append(seen, v)
		return true
	})
	if !reflect.DeepEqual(seen, []int{2, 4}) {
		t.Fatalf("unexpected filtered values %v", seen)
	}
}

func TestListOfAnyKeepsNil(t *testing.T) {
	list := Of[any](nil, "x")
	if v, ok := list.At(0); !ok || v != nil {
		t.Fatalf("expected nil element, got %v", v)
	}
}

func TestRemoveKeepsOrder(t *testing.T) {
	base := Of("a", "b", "c", "d")
	cases := []struct {
		index int
		want  []string
	}{
		{0, []string{"b", "c", "d"}},
		{2, []string{"a", "b", "d"}},
		{3, []string{"a", "b", "c"}},
		{9, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range cases {
		if got := base.Remove(tc.index).Slice(); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("remove %d: expected %v, got %v", tc.index, tc.want, got)
		}
	}
	if !Of("x").Remove(0).IsEmpty() {
		t.Fatalf("expected removing the last element to leave an empty list")
	}
}

func TestBranchesShareBase(t *testing.T) {
	var base List[int]
	for i := 0; i < 100; i++ {
		base = base.Add(i)
	}
	left := base.Add(100)
	right := base.Set(50, -1)

	if base.Len() != 100 || left.Len() != 101 || right.Len() != 100 {
		t.Fatalf("unexpected lengths base=%d left=%d right=%d", base.Len(), left.Len(), right.Len())
	}
	if v, _ := base.At(50); v != 50 {
		t.Fatalf("base changed by Set on a branch: %d", v)
	}
	if v, _ := right.At(50); v != -1 {
		t.Fatalf("expected branch to hold the new value, got %d", v)
	}
	if left.Equal(base) || !base.Equal(right.Set(50, 50)) {
		t.Fatalf("unexpected equality between branches")
	}
}
