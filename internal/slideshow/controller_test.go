package slideshow

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func photos(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a'+i)) + ".jpg"
	}
	return out
}

func TestAdvanceWraps(t *testing.T) {
	c := NewController(time.Hour)
	c.SetPhotos(photos(3))

	c.Advance(1)
	c.Advance(1)
	if c.Index() != 2 {
		t.Fatalf("index = %d, want 2", c.Index())
	}
	c.Advance(1)
	if c.Index() != 0 {
		t.Errorf("forward wrap: index = %d, want 0", c.Index())
	}
	c.Advance(-1)
	if c.Index() != 2 {
		t.Errorf("backward wrap: index = %d, want 2", c.Index())
	}
}

func TestAdvanceNoopOnShortLists(t *testing.T) {
	for _, n := range []int{0, 1} {
		c := NewController(time.Hour)
		c.SetPhotos(photos(n))
		c.Advance(1)
		c.Advance(-1)
		if c.Index() != 0 {
			t.Errorf("len=%d: index = %d, want 0", n, c.Index())
		}
	}
}

func TestJumpToBounds(t *testing.T) {
	c := NewController(time.Hour)
	c.SetPhotos(photos(4))

	c.JumpTo(2)
	if c.Index() != 2 {
		t.Fatalf("index = %d, want 2", c.Index())
	}
	c.JumpTo(-1)
	c.JumpTo(4)
	if c.Index() != 2 {
		t.Errorf("out-of-range jump moved index to %d", c.Index())
	}
}

func TestSetPhotosResetsPosition(t *testing.T) {
	c := NewController(time.Hour)
	c.SetPhotos(photos(5))
	c.JumpTo(3)

	c.SetPhotos(photos(2))
	if c.Index() != 0 {
		t.Errorf("index = %d after SetPhotos, want 0", c.Index())
	}
	if c.Current() != "a.jpg" {
		t.Errorf("Current() = %q, want a.jpg", c.Current())
	}
}

func TestSetPhotosPreservesPlayback(t *testing.T) {
	c := NewController(time.Hour)
	c.SetPhotos(photos(3))
	c.Play()
	if !c.Playing() {
		t.Fatalf("not playing after Play")
	}

	c.SetPhotos(photos(4))
	if !c.Playing() {
		t.Errorf("playback state lost on SetPhotos")
	}
}

func TestTogglePlay(t *testing.T) {
	c := NewController(time.Hour)
	c.SetPhotos(photos(3))

	c.TogglePlay()
	if !c.Playing() {
		t.Fatalf("not playing after toggle")
	}
	c.TogglePlay()
	if c.Playing() {
		t.Fatalf("still playing after second toggle")
	}
}

func TestCloseRewindsButKeepsPhotos(t *testing.T) {
	c := NewController(time.Hour)
	c.SetPhotos(photos(3))
	c.Play()
	c.Advance(1)

	c.Close()
	if c.Playing() {
		t.Errorf("still playing after Close")
	}
	if c.Index() != 0 {
		t.Errorf("index = %d after Close, want 0", c.Index())
	}
	if c.Len() != 3 {
		t.Errorf("photo list dropped on Close")
	}
}

func TestAutoAdvanceTick(t *testing.T) {
	c := NewController(time.Hour)
	c.SetPhotos(photos(2))
	c.Play()

	c.autoAdvanceTick()
	if c.Index() != 1 {
		t.Errorf("index = %d after tick, want 1", c.Index())
	}

	// Paused: ticks are ignored.
	c.TogglePlay()
	c.autoAdvanceTick()
	if c.Index() != 1 {
		t.Errorf("tick advanced while paused")
	}
}

func TestCurrentEmptyList(t *testing.T) {
	c := NewController(time.Hour)
	if c.Current() != "" {
		t.Errorf("Current() on empty list = %q, want empty", c.Current())
	}
}

// TestProperty02_FullCycleReturnsToStart verifies that advancing by the
// list length in either direction always lands back where it started.
func TestProperty02_FullCycleReturnsToStart(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 12).Draw(rt, "len")
		dir := rapid.SampledFrom([]int{1, -1}).Draw(rt, "dir")

		c := NewController(time.Hour)
		c.SetPhotos(photos(n))
		start := rapid.IntRange(0, n-1).Draw(rt, "start")
		c.JumpTo(start)

		for i := 0; i < n; i++ {
			c.Advance(dir)
		}
		if c.Index() != start {
			rt.Fatalf("index = %d after full cycle, want %d", c.Index(), start)
		}
	})
}

// TestProperty03_AdvanceInverse verifies that Advance(1) then
// Advance(-1) is an identity from any position.
func TestProperty03_AdvanceInverse(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 12).Draw(rt, "len")
		c := NewController(time.Hour)
		c.SetPhotos(photos(n))
		c.JumpTo(rapid.IntRange(0, n-1).Draw(rt, "start"))

		before := c.Index()
		c.Advance(1)
		c.Advance(-1)
		if c.Index() != before {
			rt.Fatalf("index = %d, want %d", c.Index(), before)
		}
	})
}

// TestProperty04_IndexAlwaysInRange verifies no operation sequence can
// move the index outside the photo list.
func TestProperty04_IndexAlwaysInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "len")
		c := NewController(time.Hour)
		c.SetPhotos(photos(n))

		ops := rapid.IntRange(1, 40).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				c.Advance(1)
			case 1:
				c.Advance(-1)
			case 2:
				c.JumpTo(rapid.IntRange(-2, 10).Draw(rt, "jump"))
			case 3:
				c.autoAdvanceTick()
			}

			idx := c.Index()
			if n == 0 {
				if idx != 0 {
					rt.Fatalf("index = %d on empty list", idx)
				}
			} else if idx < 0 || idx >= n {
				rt.Fatalf("index %d out of range [0,%d)", idx, n)
			}
		}
	})
}
