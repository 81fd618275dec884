package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADVISORY LOCKER
// Session-level advisory locks on a dedicated pooled connection. Keys are
// hashed with hashtextextended; a collision only serialises two unrelated
// operations.
// ══════════════════════════════════════════════════════════════════════════════

// Locker implements shared.Locker with PostgreSQL advisory locks.
type Locker struct {
	conn   *Connection
	logger *slog.Logger
}

// NewLocker creates a Locker.
func NewLocker(conn *Connection, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{conn: conn, logger: logger.With("component", "pg_locker")}
}

// Lock acquires every key in sorted order on one connection. Cancelling ctx
// aborts the wait and releases what was already taken.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = shared.NormalizeKeys(keys)

	if l.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}

	pc, err := l.conn.Pool().Acquire(ctx)
	if err != nil {
		return nil, shared.WrapError("lock", "Lock", shared.ErrLockNotAcquired, "no connection for locks", err)
	}

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, err := pc.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
			l.release(pc, held)
			return nil, shared.WrapError("lock", "Lock", shared.ErrLockNotAcquired,
				"gave up waiting for "+key, err)
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(pc, held) })
	}, nil
}

// release unlocks in reverse order and returns the connection to the pool.
// A connection whose unlock failed is destroyed so its session locks die
// with it.
func (l *Locker) release(pc *pgxpool.Conn, held []string) {
	ctx := context.Background()
	for i := len(held) - 1; i >= 0; i-- {
		var ok bool
		err := pc.QueryRow(ctx, `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, held[i]).Scan(&ok)
		if err != nil || !ok {
			l.logger.Error("failed to release advisory lock",
				"key", held[i],
				"error", fmt.Sprint(err),
			)
			_ = pc.Conn().Close(ctx)
			pc.Release()
			return
		}
	}
	pc.Release()
}
