package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"amor/internal/models"
	"amor/internal/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewStub struct {
	groups   []models.GroupView
	approved []uint
	denied   []uint
	denyErr  error
}

func (r *reviewStub) Unapproved(context.Context) ([]models.GroupView, error) {
	return r.groups, nil
}

func (r *reviewStub) Approve(_ context.Context, id uint) error {
	r.approved = append(r.approved, id)
	return nil
}

func (r *reviewStub) Deny(_ context.Context, id uint) error {
	r.denied = append(r.denied, id)
	return r.denyErr
}

func TestQueueLoop(t *testing.T) {
	stub := &reviewStub{
		groups: []models.GroupView{
			{ID: 1, Name: "one", Tags: []string{"cute"}},
			{ID: 2, Name: "two"},
		},
		denyErr: errors.New("server said no"),
	}
	q := moderation.NewQueue(stub, nil)
	in := bufio.NewScanner(strings.NewReader("a\nd\nf\nu 2\nq\n"))
	var out bytes.Buffer

	require.NoError(t, queueLoop(context.Background(), q, in, &out))

	assert.Equal(t, []uint{1}, stub.approved)
	assert.Equal(t, []uint{2}, stub.denied)
	assert.Contains(t, out.String(), "successfully approved the group: one")
	assert.Contains(t, out.String(), "decision failed")
	assert.Contains(t, out.String(), "#2 two (deny)")

	top, ok := q.Top()
	require.True(t, ok)
	assert.Equal(t, uint(2), top.ID)
}

func TestQueueLoop_EmptyQueue(t *testing.T) {
	q := moderation.NewQueue(&reviewStub{}, nil)
	var out bytes.Buffer
	require.NoError(t, queueLoop(context.Background(), q, bufio.NewScanner(strings.NewReader("a\nq\n")), &out))
	assert.Contains(t, out.String(), "no more groups to verify")
}
