package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// SQLiteKV is the persistent KV implementation. Expiry is tracked as unix
// milliseconds on each key's kv row and enforced lazily on access; Purge
// removes expired rows eagerly. Driver failures surface as UnavailableError.
type SQLiteKV struct {
	db  *DB
	now func() time.Time
}

// NewSQLiteKV creates a KV backed by the given database.
func NewSQLiteKV(db *DB) *SQLiteKV {
	return &SQLiteKV{db: db, now: time.Now}
}

// SetNow replaces the store's clock. Tests use this to simulate expiry.
func (s *SQLiteKV) SetNow(now func() time.Time) { s.now = now }

func (s *SQLiteKV) nowMillis() int64 { return s.now().UnixMilli() }

// expiresAt converts a TTL to a nullable unix-millisecond expiry.
func (s *SQLiteKV) expiresAt(ttl time.Duration) sql.NullInt64 {
	if ttl <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
}

func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("set", key, err)
	}
	defer tx.Rollback()

	// Replacing a key discards whatever structure previously lived there.
	if err := clearSideTables(tx, key); err != nil {
		return unavailable("set", key, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO kv (key, kind, value, expires_at) VALUES (?, 'value', ?, ?)
		 ON CONFLICT(key) DO UPDATE SET kind='value', value=excluded.value, count=0, expires_at=excluded.expires_at`,
		key, value, s.expiresAt(ttl),
	); err != nil {
		return unavailable("set", key, err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expires sql.NullInt64
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE key = ? AND kind = 'value'`, key,
	).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("get", key, err)
	}
	if expires.Valid && expires.Int64 <= s.nowMillis() {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLiteKV) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE kv SET expires_at = ? WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		s.expiresAt(ttl), key, s.nowMillis(),
	)
	if err != nil {
		return false, unavailable("extend", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("extend", key, err)
	}
	return n > 0, nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("delete", key, err)
	}
	defer tx.Rollback()

	if err := clearSideTables(tx, key); err != nil {
		return unavailable("delete", key, err)
	}
	if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return unavailable("delete", key, err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("delete", key, err)
	}
	return nil
}

func (s *SQLiteKV) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("incr", key, err)
	}
	defer tx.Rollback()

	var count int64
	var expires sql.NullInt64
	err = tx.QueryRow(
		`SELECT count, expires_at FROM kv WHERE key = ? AND kind = 'counter'`, key,
	).Scan(&count, &expires)

	switch {
	case errors.Is(err, sql.ErrNoRows) || (err == nil && expires.Valid && expires.Int64 <= s.nowMillis()):
		// First increment of the window arms the TTL; it is never re-armed
		// by later increments, so the window does not slide.
		count = 1
		if _, err := tx.Exec(
			`INSERT INTO kv (key, kind, count, expires_at) VALUES (?, 'counter', 1, ?)
			 ON CONFLICT(key) DO UPDATE SET kind='counter', value=NULL, count=1, expires_at=excluded.expires_at`,
			key, s.expiresAt(ttl),
		); err != nil {
			return 0, unavailable("incr", key, err)
		}
	case err != nil:
		return 0, unavailable("incr", key, err)
	default:
		count++
		if _, err := tx.Exec(`UPDATE kv SET count = ? WHERE key = ?`, count, key); err != nil {
			return 0, unavailable("incr", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, unavailable("incr", key, err)
	}
	return count, nil
}

func (s *SQLiteKV) Append(ctx context.Context, key string, value []byte, ttl time.Duration) (int, error) {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("append", key, err)
	}
	defer tx.Rollback()

	var expires sql.NullInt64
	err = tx.QueryRow(`SELECT expires_at FROM kv WHERE key = ? AND kind = 'list'`, key).Scan(&expires)
	fresh := errors.Is(err, sql.ErrNoRows)
	if err != nil && !fresh {
		return 0, unavailable("append", key, err)
	}
	if !fresh && expires.Valid && expires.Int64 <= s.nowMillis() {
		// Expired list: discard the old entries before reusing the key.
		if _, err := tx.Exec(`DELETE FROM kv_list WHERE key = ?`, key); err != nil {
			return 0, unavailable("append", key, err)
		}
		fresh = true
	}

	if _, err := tx.Exec(
		`INSERT INTO kv (key, kind, expires_at) VALUES (?, 'list', ?)
		 ON CONFLICT(key) DO UPDATE SET kind='list', value=NULL, count=0, expires_at=excluded.expires_at`,
		key, s.expiresAt(ttl),
	); err != nil {
		return 0, unavailable("append", key, err)
	}

	var pos int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM kv_list WHERE key = ?`, key,
	).Scan(&pos); err != nil {
		return 0, unavailable("append", key, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO kv_list (key, seq, value) VALUES (?, ?, ?)`, key, pos, value,
	); err != nil {
		return 0, unavailable("append", key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, unavailable("append", key, err)
	}
	return pos, nil
}

func (s *SQLiteKV) Tail(ctx context.Context, key string, limit int) ([][]byte, error) {
	var expires sql.NullInt64
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT expires_at FROM kv WHERE key = ? AND kind = 'list'`, key,
	).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("tail", key, err)
	}
	if expires.Valid && expires.Int64 <= s.nowMillis() {
		return nil, nil
	}

	query := `SELECT value FROM kv_list WHERE key = ? ORDER BY seq`
	args := []any{key}
	if limit > 0 {
		// Take the last N by descending seq, then restore append order.
		query = `SELECT value FROM (
			SELECT seq, value FROM kv_list WHERE key = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("tail", key, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, unavailable("tail", key, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("tail", key, err)
	}
	return out, nil
}

func (s *SQLiteKV) AddToSet(ctx context.Context, key, member string) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("sadd", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO kv (key, kind) VALUES (?, 'set')
		 ON CONFLICT(key) DO NOTHING`, key,
	); err != nil {
		return unavailable("sadd", key, err)
	}
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO kv_set (key, member) VALUES (?, ?)`, key, member,
	); err != nil {
		return unavailable("sadd", key, err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("sadd", key, err)
	}
	return nil
}

func (s *SQLiteKV) RemoveFromSet(ctx context.Context, key, member string) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("srem", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM kv_set WHERE key = ? AND member = ?`, key, member); err != nil {
		return unavailable("srem", key, err)
	}
	// Drop the parent row once the set is empty so Keys() stops listing it.
	if _, err := tx.Exec(
		`DELETE FROM kv WHERE key = ? AND kind = 'set'
		 AND NOT EXISTS (SELECT 1 FROM kv_set WHERE key = ?)`, key, key,
	); err != nil {
		return unavailable("srem", key, err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("srem", key, err)
	}
	return nil
}

func (s *SQLiteKV) Members(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT member FROM kv_set WHERE key = ? ORDER BY member`, key,
	)
	if err != nil {
		return nil, unavailable("members", key, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, unavailable("members", key, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("members", key, err)
	}
	return members, nil
}

func (s *SQLiteKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := likeEscape(prefix) + "%"
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT key FROM kv WHERE key LIKE ? ESCAPE '\'
		 AND (expires_at IS NULL OR expires_at > ?) ORDER BY key`,
		pattern, s.nowMillis(),
	)
	if err != nil {
		return nil, unavailable("keys", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, unavailable("keys", prefix, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("keys", prefix, err)
	}
	return keys, nil
}

// Purge eagerly removes expired keys and their list entries. Safe to run
// periodically; lazy expiry keeps correctness without it.
func (s *SQLiteKV) Purge(ctx context.Context) (int64, error) {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("purge", "", err)
	}
	defer tx.Rollback()

	now := s.nowMillis()
	if _, err := tx.Exec(
		`DELETE FROM kv_list WHERE key IN
		 (SELECT key FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?)`, now,
	); err != nil {
		return 0, unavailable("purge", "", err)
	}
	res, err := tx.Exec(`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, now)
	if err != nil {
		return 0, unavailable("purge", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("purge", "", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable("purge", "", err)
	}
	return n, nil
}

func clearSideTables(tx *sql.Tx, key string) error {
	if _, err := tx.Exec(`DELETE FROM kv_list WHERE key = ?`, key); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM kv_set WHERE key = ?`, key)
	return err
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
