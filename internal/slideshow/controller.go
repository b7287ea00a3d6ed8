// Package slideshow implements the timed photo rotation used by the
// recognition result view and the memory viewer.
package slideshow

import (
	"sync"
	"time"

	"github.com/your-org/memora/internal/timer"
)

// Controller rotates through a photo list. Auto-advance runs only while
// playing and there is more than one photo. An empty list makes every
// operation a no-op.
type Controller struct {
	mu      sync.Mutex
	photos  []string
	index   int
	playing bool
	auto    *timer.Interval

	// OnChange receives the current index after every visible change,
	// without the lock held.
	OnChange func(index int)
}

func NewController(interval time.Duration) *Controller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	c := &Controller{}
	c.auto = timer.NewInterval(interval, c.autoAdvanceTick)
	return c
}

// SetPhotos replaces the photo list and resets the position. Playback
// state is preserved; the timer restarts if it should be running.
func (c *Controller) SetPhotos(photos []string) {
	c.mu.Lock()
	c.photos = photos
	c.index = 0
	run := c.playing && len(photos) > 1
	c.mu.Unlock()

	if run {
		c.auto.Reset()
	} else {
		c.auto.Stop()
	}
	c.notify()
}

// Advance moves by direction (+1 or -1), wrapping modulo length.
// No-op when the list has one photo or fewer.
func (c *Controller) Advance(direction int) {
	c.mu.Lock()
	if len(c.photos) <= 1 {
		c.mu.Unlock()
		return
	}
	n := len(c.photos)
	c.index = ((c.index+direction)%n + n) % n
	c.mu.Unlock()
	c.notify()
}

// JumpTo sets the index directly. Out-of-range values are ignored.
func (c *Controller) JumpTo(index int) {
	c.mu.Lock()
	if index < 0 || index >= len(c.photos) {
		c.mu.Unlock()
		return
	}
	c.index = index
	c.mu.Unlock()
	c.notify()
}

// TogglePlay flips the playing flag. Pausing halts the auto-advance
// timer; resuming restarts the per-slide progress from zero.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	c.playing = !c.playing
	run := c.playing && len(c.photos) > 1
	c.mu.Unlock()

	if run {
		c.auto.Reset()
	} else {
		c.auto.Stop()
	}
}

// Play starts automatic rotation.
func (c *Controller) Play() {
	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = true
	run := len(c.photos) > 1
	c.mu.Unlock()

	if run {
		c.auto.Reset()
	}
}

// Close stops the timer and rewinds to the first slide for the next
// open. The photo list itself is untouched.
func (c *Controller) Close() {
	c.auto.Stop()
	c.mu.Lock()
	c.playing = false
	c.index = 0
	c.mu.Unlock()
}

// Index returns the current slide position.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Playing reports whether auto-advance is active.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Len returns the photo count.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.photos)
}

// Current returns the photo at the current index, or "" when empty.
func (c *Controller) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.photos) == 0 {
		return ""
	}
	return c.photos[c.index]
}

func (c *Controller) autoAdvanceTick() {
	c.mu.Lock()
	if !c.playing || len(c.photos) <= 1 {
		c.mu.Unlock()
		return
	}
	c.index = (c.index + 1) % len(c.photos)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	if c.OnChange == nil {
		return
	}
	c.mu.Lock()
	idx := c.index
	c.mu.Unlock()
	c.OnChange(idx)
}
