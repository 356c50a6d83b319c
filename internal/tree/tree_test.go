package tree

import (
	"sort"
	"testing"

	"github.com/boltpage/inspector/internal/reader"
	"github.com/boltpage/inspector/internal/testutil"
)

func openFixture(t *testing.T) (*reader.Reader, testutil.Fixture) {
	t.Helper()
	fx := testutil.BuildDB(t)
	r, err := reader.Open(fx.Path, reader.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r, fx
}

func drainItems(t *testing.T, it *ItemIterator) []*Item {
	t.Helper()
	var out []*Item
	for {
		item, err := it.Next()
		if err != nil {
			t.Fatalf("item iterator error: %v", err)
		}
		if item == nil {
			return out
		}
		out = append(out, item)
	}
}

func TestItemIteratorDepthFirstOrder(t *testing.T) {
	r, fx := openFixture(t)
	items := drainItems(t, NewItemIterator(r, fx.RootPgid))

	if len(items) != 6 {
		t.Fatalf("got %d items, want 6: %+v", len(items), items)
	}

	check := func(i int, kind ItemKind, name string, depth uint64) {
		t.Helper()
		it := items[i]
		if it.Kind != kind {
			t.Errorf("item %d: kind = %v, want %v", i, it.Kind, kind)
		}
		if it.Depth != depth {
			t.Errorf("item %d: depth = %d, want %d", i, it.Depth, depth)
		}
		var got string
		switch kind {
		case ItemKeyValue:
			got = string(it.Key)
		default:
			got = string(it.Name)
		}
		if got != name {
			t.Errorf("item %d: name/key = %q, want %q", i, got, name)
		}
	}

	check(0, ItemBucket, "buck", 1)
	check(1, ItemKeyValue, "k1", 2)
	check(2, ItemKeyValue, "foo", 1)
	check(3, ItemInlineBucket, "ibuck", 1)
	check(4, ItemKeyValue, "ik", 2)
	check(5, ItemKeyValue, "zk", 1)

	if string(items[1].Value) != "v1" {
		t.Fatalf("k1 value = %q, want v1", items[1].Value)
	}
	if string(items[2].Value) != "bar" {
		t.Fatalf("foo value = %q, want bar", items[2].Value)
	}
	if string(items[4].Value) != "iv" {
		t.Fatalf("ik value = %q, want iv", items[4].Value)
	}
}

func TestBucketIteratorFiltersToBuckets(t *testing.T) {
	r, fx := openFixture(t)
	it := NewBucketIterator(r, fx.RootPgid)
	var names []string
	for {
		item, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if item == nil {
			break
		}
		names = append(names, string(item.Name))
	}
	if len(names) != 2 || names[0] != "buck" || names[1] != "ibuck" {
		t.Fatalf("unexpected bucket names: %v", names)
	}
}

func TestPageIteratorReachability(t *testing.T) {
	r, fx := openFixture(t)
	it := NewPageIterator(r, fx.FreelistPgid, fx.RootPgid)

	seen := map[uint64]PageKind{}
	for {
		info, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if info == nil {
			break
		}
		seen[info.ID] = info.Kind
	}

	want := map[uint64]PageKind{
		0: PageKindMeta,
		1: PageKindMeta,
		2: PageKindFreelist,
		3: PageKindDataBranch,
		4: PageKindDataLeaf,
		6: PageKindFree,
		7: PageKindDataLeaf,
		9: PageKindDataLeaf,
	}
	if len(seen) != len(want) {
		t.Fatalf("visited %d pages, want %d: %+v", len(seen), len(want), seen)
	}
	for id, kind := range want {
		if got, ok := seen[id]; !ok || got != kind {
			t.Errorf("page %d: kind = %v, want %v (present=%v)", id, got, kind, ok)
		}
	}
}

func TestPageIteratorFreeParentIsNil(t *testing.T) {
	r, fx := openFixture(t)
	it := NewPageIterator(r, fx.FreelistPgid, fx.RootPgid)

	var free *PageInfo
	for {
		info, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if info == nil {
			break
		}
		if info.Kind == PageKindFree {
			free = info
		}
	}
	if free == nil {
		t.Fatal("no free page visited")
	}
	if free.ParentPageID != nil {
		t.Fatalf("free page %d: parent = %v, want nil", free.ID, *free.ParentPageID)
	}
}

func TestUnreachable(t *testing.T) {
	r, fx := openFixture(t)
	ids, err := Unreachable(r, fx.FreelistPgid, fx.RootPgid, fx.MaxPgid)
	if err != nil {
		t.Fatal(err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 8 {
		t.Fatalf("unreachable = %v, want [5 8]", ids)
	}
}

func TestGetHitTopLevel(t *testing.T) {
	r, fx := openFixture(t)
	val, err := Get(r, fx.RootPgid, nil, []byte("foo"))
	if err != nil {
		t.Fatal(err)
	}
	if string(val) != "bar" {
		t.Fatalf("got %q, want bar", val)
	}
}

func TestGetHitNestedBucket(t *testing.T) {
	r, fx := openFixture(t)
	val, err := Get(r, fx.RootPgid, [][]byte{[]byte("buck")}, []byte("k1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(val) != "v1" {
		t.Fatalf("got %q, want v1", val)
	}
}

func TestGetHitInlineBucket(t *testing.T) {
	r, fx := openFixture(t)
	val, err := Get(r, fx.RootPgid, [][]byte{[]byte("ibuck")}, []byte("ik"))
	if err != nil {
		t.Fatal(err)
	}
	if string(val) != "iv" {
		t.Fatalf("got %q, want iv", val)
	}
}

func TestGetMissingBucket(t *testing.T) {
	r, fx := openFixture(t)
	val, err := Get(r, fx.RootPgid, [][]byte{[]byte("nonexistent")}, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if val != nil {
		t.Fatalf("got %q, want nil", val)
	}
}

func TestGetMissingKey(t *testing.T) {
	r, fx := openFixture(t)
	val, err := Get(r, fx.RootPgid, nil, []byte("zzz-missing"))
	if err != nil {
		t.Fatal(err)
	}
	if val != nil {
		t.Fatalf("got %q, want nil", val)
	}
}

func TestGetAcrossBranchLevels(t *testing.T) {
	r, fx := openFixture(t)
	val, err := Get(r, fx.RootPgid, nil, []byte("zk"))
	if err != nil {
		t.Fatal(err)
	}
	if string(val) != "zv" {
		t.Fatalf("got %q, want zv", val)
	}
}
