package reader

import (
	"errors"
	"testing"

	"github.com/boltpage/inspector/internal/errs"
	"github.com/boltpage/inspector/internal/page"
	"github.com/boltpage/inspector/internal/testutil"
)

func TestOpenDiscoversPageSizeAndActiveMeta(t *testing.T) {
	fx := testutil.BuildDB(t)

	r, err := Open(fx.Path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.PageSize() != testutil.PageSize {
		t.Fatalf("page size = %d, want %d", r.PageSize(), testutil.PageSize)
	}
	m, id := r.ActiveMeta()
	if id != fx.ActiveMetaID {
		t.Fatalf("active meta id = %d, want %d", id, fx.ActiveMetaID)
	}
	if m.Txid != fx.Txid || m.RootPgid != fx.RootPgid || m.FreelistPgid != fx.FreelistPgid || m.MaxPgid != fx.MaxPgid {
		t.Fatalf("unexpected active meta: %+v", m)
	}
}

func TestOpenWithExplicitPageSize(t *testing.T) {
	fx := testutil.BuildDB(t)
	r, err := Open(fx.Path, Options{PageSize: testutil.PageSize})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.PageSize() != testutil.PageSize {
		t.Fatalf("page size = %d", r.PageSize())
	}
}

func TestOpenFileNotFound(t *testing.T) {
	_, err := Open("/nonexistent/path/to/a.db", Options{})
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.ErrFileNotFound {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestReadPageCachesAndClassifies(t *testing.T) {
	fx := testutil.BuildDB(t)
	r, err := Open(fx.Path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	p1, err := r.ReadPage(fx.RootPgid)
	if err != nil {
		t.Fatal(err)
	}
	if p1.Kind() != page.KindBranch {
		t.Fatalf("root kind = %v, want Branch", p1.Kind())
	}

	p2, err := r.ReadPage(fx.RootPgid)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatal("expected ReadPage to return the cached pointer on a second call")
	}
}

func TestCloseDropsCache(t *testing.T) {
	fx := testutil.BuildDB(t)
	r, err := Open(fx.Path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadPage(fx.RootPgid); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if r.cache != nil {
		t.Fatalf("cache still holds %d pages after Close", len(r.cache))
	}
}
