package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"amor/internal/middleware"
)

// Lifetimes of cached entries. Writers invalidate explicitly, so these
// only bound staleness after a missed invalidation.
const (
	GroupTTL = 10 * time.Minute
	UserTTL  = 5 * time.Minute
)

// GroupKey holds the public view of a group, images and owner included.
func GroupKey(groupID uint) string {
	return "group:" + strconv.FormatUint(uint64(groupID), 10)
}

func UserKey(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

// Invalidate deletes keys in one round trip. Failures are logged and the
// entries expire by TTL.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateGroup drops cached views after approval or denial.
func InvalidateGroup(ctx context.Context, groupIDs ...uint) {
	keys := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		keys = append(keys, GroupKey(id))
	}
	Invalidate(ctx, keys...)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
