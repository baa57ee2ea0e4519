package service

import (
	"context"
	"testing"

	"amor/internal/cache"
	"amor/internal/models"
	"amor/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: swaps the package-level cache client.
func TestGroupService_View_CachedUntilDenied(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	repo := noopGroupRepo()
	loads := 0
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Group, error) {
		loads++
		return &models.Group{
			ID:     id,
			Name:   "cached",
			Tags:   []string{"duo"},
			Images: []models.Image{{ID: "a.jpg", URL: "/media/a.jpg"}, {ID: "b.jpg", URL: "/media/b.jpg"}},
			User:   &models.User{ID: 7, Name: "owner"},
		}, nil
	}
	svc := NewGroupService(repo, testutil.NewObjectStoreStub(), nil, adminIs(1), GroupServiceOptions{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		view, err := svc.View(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "cached", view.Name)
		require.NotNil(t, view.User)
		assert.Equal(t, uint(7), view.User.ID)
		assert.Len(t, view.Images, 2)
	}
	assert.Equal(t, 1, loads)
	assert.True(t, mr.Exists(cache.GroupKey(5)))

	require.NoError(t, svc.Deny(ctx, 1, 5))
	assert.False(t, mr.Exists(cache.GroupKey(5)))
}

func TestGroupService_View_NotFound(t *testing.T) {
	repo := noopGroupRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Group, error) {
		return nil, models.NewNotFoundError("Group", id)
	}
	svc := NewGroupService(repo, testutil.NewObjectStoreStub(), nil, adminIs(), GroupServiceOptions{})

	_, err := svc.View(context.Background(), 3)
	assertCode(t, err, models.CodeNotFound)
}
