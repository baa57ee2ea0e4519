package repository

import (
	"context"
	"errors"
	"strings"

	"amor/internal/database"
	"amor/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// readDB routes reads to the replica when one is connected.
func readDB(primary *gorm.DB) *gorm.DB {
	if database.ReadDB != nil {
		return database.ReadDB
	}
	return primary
}

// observe times a query for metrics and opens a repository span. The
// returned func must be called when the query finishes.
func observe(ctx context.Context, method, table string) (context.Context, func(error)) {
	stop := observability.TrackQuery(method, table)
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, method, table)
	return ctx, func(err error) {
		stop()
		endSpan(ctx, span, err)
	}
}

func endSpan(ctx context.Context, span trace.Span, err error) {
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		observability.RecordErrorInContext(ctx, err)
	}
	span.End()
}

// isUniqueConstraintError reports a unique violation from Postgres or SQLite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
