// Package roll keeps the current group and a prefetched successor for the
// roll view.
package roll

import (
	"context"
	"errors"
	"sync"

	"amor/internal/models"
	"amor/internal/settings"
)

var (
	// ErrNoGroup is returned when the server has nothing eligible to show.
	ErrNoGroup = errors.New("no group available")
	// ErrSuperseded is returned when a newer roll started before this one finished.
	ErrSuperseded = errors.New("roll superseded")
)

// Fetcher draws a random group, excluding previousID when non-zero.
type Fetcher interface {
	Random(ctx context.Context, previousID uint, includeUnapproved bool) (*models.GroupView, error)
}

// Preferences supplies the visibility setting read on every fetch.
type Preferences interface {
	Get() settings.Settings
}

// Roller holds the displayed group and the next one to show.
type Roller struct {
	fetch Fetcher
	prefs Preferences

	mu      sync.Mutex
	current *models.GroupView
	next    *models.GroupView
	seq     uint64
}

// New returns an empty Roller.
func New(fetch Fetcher, prefs Preferences) *Roller {
	return &Roller{fetch: fetch, prefs: prefs}
}

// Start shows initial and prefetches its successor. A nil initial leaves the
// roller empty until the first Roll. When initial is the only eligible group
// there is no successor and Next stays nil.
func (r *Roller) Start(ctx context.Context, initial *models.GroupView) error {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.current, r.next = initial, nil
	r.mu.Unlock()

	if initial == nil {
		return nil
	}

	next, err := r.draw(ctx, initial.ID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		return ErrSuperseded
	}
	if errors.Is(err, ErrNoGroup) {
		return nil
	}
	if err != nil {
		return err
	}
	r.next = next
	return nil
}

// Roll promotes the prefetched group and prefetches another. Any failure
// clears both slots; calling Roll again retries from scratch.
func (r *Roller) Roll(ctx context.Context) (*models.GroupView, error) {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	prefetched := r.next
	r.mu.Unlock()

	var exclude uint
	if prefetched != nil {
		exclude = prefetched.ID
	}
	drawn, err := r.draw(ctx, exclude)

	var follow *models.GroupView
	if err == nil && prefetched == nil {
		// Nothing was prefetched: show the draw and fetch its successor.
		follow, err = r.draw(ctx, drawn.ID)
		if errors.Is(err, ErrNoGroup) {
			err = nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		return nil, ErrSuperseded
	}
	if err != nil {
		r.current, r.next = nil, nil
		return nil, err
	}
	if prefetched != nil {
		r.current, r.next = prefetched, drawn
	} else {
		r.current, r.next = drawn, follow
	}
	return r.current, nil
}

// Current returns the displayed group, or nil.
func (r *Roller) Current() *models.GroupView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Next returns the prefetched group, or nil.
func (r *Roller) Next() *models.GroupView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}

func (r *Roller) draw(ctx context.Context, previousID uint) (*models.GroupView, error) {
	include := false
	if r.prefs != nil {
		include = r.prefs.Get().IncludeUnapproved
	}
	g, err := r.fetch.Random(ctx, previousID, include)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoGroup
	}
	return g, nil
}
