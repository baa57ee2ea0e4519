// Package moderation drives an admin's review queue of pending groups.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"amor/internal/models"
)

// Decision is the verdict applied to a pending group.
type Decision int

const (
	Approve Decision = iota
	Deny
)

func (d Decision) String() string {
	if d == Approve {
		return "approve"
	}
	return "deny"
}

var (
	// ErrNotQueued is returned when deciding on a group the queue does not hold.
	ErrNotQueued = errors.New("group is not in the review queue")
	// ErrInFlight is returned when a decision for the group is already pending.
	ErrInFlight = errors.New("a decision for this group is already in flight")
)

// ReviewClient is the server surface the queue needs.
type ReviewClient interface {
	Unapproved(ctx context.Context) ([]models.GroupView, error)
	Approve(ctx context.Context, groupID uint) error
	Deny(ctx context.Context, groupID uint) error
}

// Failure records a decision the server did not accept.
type Failure struct {
	Group    models.GroupView
	Decision Decision
	Err      error
}

type pending struct {
	group models.GroupView
	gen   uint64
}

// Queue holds the groups awaiting review, top first. Decisions remove the
// group immediately and settle with the server afterwards.
type Queue struct {
	client ReviewClient

	mu       sync.Mutex
	items    []models.GroupView
	inFlight map[uint]pending
	failures []Failure
	gen      uint64
}

// NewQueue returns a queue seeded with initial.
func NewQueue(client ReviewClient, initial []models.GroupView) *Queue {
	return &Queue{
		client:   client,
		items:    append([]models.GroupView(nil), initial...),
		inFlight: make(map[uint]pending),
	}
}

// Refetch replaces the queue with the server's current batch. On error the
// queue is left empty. Groups with a decision in flight are not re-added,
// and outcomes of decisions made before the refetch are no longer recorded.
func (q *Queue) Refetch(ctx context.Context) error {
	q.mu.Lock()
	q.gen++
	q.items = nil
	q.failures = nil
	q.mu.Unlock()

	groups, err := q.client.Unapproved(ctx)
	if err != nil {
		return fmt.Errorf("fetch unapproved groups: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]models.GroupView, 0, len(groups))
	for _, g := range groups {
		if _, busy := q.inFlight[g.ID]; busy {
			continue
		}
		items = append(items, g)
	}
	q.items = items
	return nil
}

// Decide removes the group from the queue and sends the decision. It blocks
// until the server answers; the removal is visible to other callers at once.
func (q *Queue) Decide(ctx context.Context, groupID uint, d Decision) error {
	q.mu.Lock()
	if _, busy := q.inFlight[groupID]; busy {
		q.mu.Unlock()
		return ErrInFlight
	}
	idx := q.indexOf(groupID)
	if idx < 0 {
		q.mu.Unlock()
		return ErrNotQueued
	}
	group := q.items[idx]
	q.items = append(q.items[:idx:idx], q.items[idx+1:]...)
	gen := q.gen
	q.inFlight[groupID] = pending{group: group, gen: gen}
	q.mu.Unlock()

	var err error
	if d == Approve {
		err = q.client.Approve(ctx, groupID)
	} else {
		err = q.client.Deny(ctx, groupID)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, groupID)
	if err != nil && gen == q.gen {
		q.failures = append(q.failures, Failure{Group: group, Decision: d, Err: err})
	}
	if err != nil {
		return fmt.Errorf("%s group %d: %w", d, groupID, err)
	}
	return nil
}

// Restore puts a failed group back on top of the queue.
func (q *Queue) Restore(groupID uint) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, f := range q.failures {
		if f.Group.ID != groupID {
			continue
		}
		q.failures = append(q.failures[:i:i], q.failures[i+1:]...)
		if q.indexOf(groupID) < 0 {
			q.items = append([]models.GroupView{f.Group}, q.items...)
		}
		return true
	}
	return false
}

// Failures returns the decisions the server rejected since the last refetch.
func (q *Queue) Failures() []Failure {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Failure(nil), q.failures...)
}

// Items returns a snapshot of the queued groups, top first.
func (q *Queue) Items() []models.GroupView {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.GroupView(nil), q.items...)
}

// Top returns the group currently up for review.
func (q *Queue) Top() (models.GroupView, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return models.GroupView{}, false
	}
	return q.items[0], true
}

// Empty reports whether nothing is left to review.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Pending is the number of decisions awaiting a server answer.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

func (q *Queue) indexOf(groupID uint) int {
	for i := range q.items {
		if q.items[i].ID == groupID {
			return i
		}
	}
	return -1
}
