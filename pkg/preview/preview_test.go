package preview

import (
	"errors"
	"testing"
)

type fakeSource struct {
	pages int
	fail  error
}

func (f fakeSource) PageCount() int { return f.pages }

func (f fakeSource) PageSize(nr int) (float64, float64, error) {
	if f.fail != nil {
		return 0, 0, f.fail
	}
	if nr%2 == 0 {
		return 842, 595, nil
	}
	return 595, 842, nil
}

func TestNavigation(t *testing.T) {
	p := New(0)
	if p.Page() != 0 || p.Next() {
		t.Fatalf("empty pane moved to page %d", p.Page())
	}
	p.Load(fakeSource{pages: 3})
	if p.Page() != 1 {
		t.Fatalf("page after load = %d", p.Page())
	}
	if p.Prev() {
		t.Fatalf("prev from first page moved")
	}
	if !p.Next() || !p.Next() || p.Page() != 3 {
		t.Fatalf("page = %d, want 3", p.Page())
	}
	if p.Next() {
		t.Fatalf("next from last page moved")
	}
	for _, n := range []int{0, -1, 4} {
		if p.Show(n) {
			t.Fatalf("Show(%d) accepted", n)
		}
	}
	if !p.Show(2) || p.Page() != 2 {
		t.Fatalf("Show(2): page = %d", p.Page())
	}
	p.Load(nil)
	if p.Page() != 0 || p.PageCount() != 0 {
		t.Fatalf("unloaded pane: page=%d count=%d", p.Page(), p.PageCount())
	}
}

func TestViewport(t *testing.T) {
	p := New(0)
	if _, err := p.Viewport(0); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("err = %v", err)
	}
	p.Load(fakeSource{pages: 2})

	vp, err := p.Viewport(0)
	if err != nil {
		t.Fatalf("viewport: %v", err)
	}
	if vp.Scale != DefaultScale || vp.Width != 892 || vp.Height != 1263 {
		t.Fatalf("viewport = %+v", vp)
	}
	p.Next()
	vp, err = p.Viewport(1)
	if err != nil {
		t.Fatalf("viewport: %v", err)
	}
	if vp.Page != 2 || vp.Width != 842 || vp.Height != 595 {
		t.Fatalf("viewport = %+v", vp)
	}
	b := vp.Bounds(10, 20)
	if b.Left != 10 || b.Top != 20 || b.Width != 842 || b.Height != 595 {
		t.Fatalf("bounds = %+v", b)
	}

	p.Load(fakeSource{pages: 1, fail: errors.New("no media box")})
	if _, err := p.Viewport(0); err == nil {
		t.Fatalf("expected size error")
	}
}
