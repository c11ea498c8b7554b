package planner

import "testing"

func TestNextReturnsNothingWhenCaughtUp(t *testing.T) {
	p := New(1006, 2000)
	if r, ok := p.Next(1005); ok {
		t.Fatalf("expected no range, got %v", r)
	}
	if p.Cursor() != 1006 {
		t.Fatalf("cursor moved to %d", p.Cursor())
	}
}

func TestNextAndAdvance(t *testing.T) {
	p := New(1000, 2000)

	r, ok := p.Next(1005)
	if !ok {
		t.Fatal("expected a range")
	}
	if r.From != 1000 || r.To != 1005 {
		t.Fatalf("got %v, want [1000,1005]", r)
	}

	p.Advance(r)
	if p.Cursor() != 1006 {
		t.Fatalf("cursor = %d, want 1006", p.Cursor())
	}
	if _, ok := p.Next(1005); ok {
		t.Fatal("expected no range after catching up")
	}
}

func TestNextIsIdempotentBeforeAdvance(t *testing.T) {
	p := New(100, 50)
	first, ok1 := p.Next(500)
	second, ok2 := p.Next(500)
	if !ok1 || !ok2 || first != second {
		t.Fatalf("expected identical ranges, got %v and %v", first, second)
	}
}

func TestChunkedCatchUp(t *testing.T) {
	p := New(0, 2000)
	latest := uint64(5000)

	want := []Range{
		{From: 0, To: 1999},
		{From: 2000, To: 3999},
		{From: 4000, To: 5000},
	}
	for i, w := range want {
		r, ok := p.Next(latest)
		if !ok {
			t.Fatalf("chunk %d: expected a range", i)
		}
		if r != w {
			t.Fatalf("chunk %d: got %v, want %v", i, r, w)
		}
		p.Advance(r)
	}
	if _, ok := p.Next(latest); ok {
		t.Fatal("expected no range after full catch-up")
	}
}

func TestRangesAreContiguousWithoutGaps(t *testing.T) {
	p := New(10, 7)
	latest := uint64(103)

	next := uint64(10)
	for {
		r, ok := p.Next(latest)
		if !ok {
			break
		}
		if r.From != next {
			t.Fatalf("gap or overlap: range starts at %d, want %d", r.From, next)
		}
		if r.To < r.From || r.To > latest {
			t.Fatalf("range %v out of bounds", r)
		}
		next = r.To + 1
		p.Advance(r)
	}
	if next != latest+1 {
		t.Fatalf("union ends at %d, want %d", next-1, latest)
	}
}

func TestShrinkHalvesWithFloor(t *testing.T) {
	p := New(0, 8)
	for _, want := range []uint64{4, 2, 1, 1} {
		if got := p.Shrink(); got != want {
			t.Fatalf("Shrink() = %d, want %d", got, want)
		}
	}

	r, ok := p.Next(100)
	if !ok || r.Width() != 1 {
		t.Fatalf("expected single-block range after shrinking to 1, got %v", r)
	}
}

func TestZeroChunkSizeUsesDefault(t *testing.T) {
	p := New(0, 0)
	if p.ChunkSize() != DefaultChunkSize {
		t.Fatalf("chunk size = %d, want %d", p.ChunkSize(), DefaultChunkSize)
	}
}
