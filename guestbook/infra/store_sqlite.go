package infra

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"guestbook-gateway/guestbook/domain"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS guestbook_entries (
	id TEXT PRIMARY KEY,
	message TEXT NOT NULL,
	author_name TEXT,
	author_avatar TEXT,
	is_anonymous INTEGER NOT NULL DEFAULT 0,
	ip_address TEXT,
	user_id TEXT,
	created_at INTEGER NOT NULL,
	CHECK (is_anonymous = 1 OR ip_address IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_guestbook_entries_quota
	ON guestbook_entries (ip_address, is_anonymous, created_at);
CREATE INDEX IF NOT EXISTS idx_guestbook_entries_created
	ON guestbook_entries (created_at);
`

// SQLiteStore persiste as entradas em SQLite (modernc.org/sqlite, sem cgo).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite abre o arquivo e aplica o schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, e domain.NewEntry) (domain.Entry, error) {
	e = e.ForStorage()

	entry := domain.Entry{
		ID:            uuid.NewString(),
		Message:       e.Message,
		AuthorName:    cloneString(e.AuthorName),
		AuthorAvatar:  cloneString(e.AuthorAvatar),
		IsAnonymous:   e.IsAnonymous,
		SourceAddress: cloneString(e.SourceAddress),
		IdentityID:    cloneString(e.IdentityID),
		// precisão de milissegundos, igual ao que volta do banco
		CreatedAt: fromMillis(toMillis(s.now())),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guestbook_entries
		   (id, message, author_name, author_avatar, is_anonymous, ip_address, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Message,
		nullString(entry.AuthorName),
		nullString(entry.AuthorAvatar),
		entry.IsAnonymous,
		nullString(entry.SourceAddress),
		nullString(entry.IdentityID),
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		return domain.Entry{}, storeErr("insert", err)
	}
	return entry, nil
}

func (s *SQLiteStore) CountAnonymousSince(ctx context.Context, sourceAddress string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guestbook_entries
		 WHERE ip_address = ? AND is_anonymous = 1 AND created_at >= ?`,
		sourceAddress, toMillis(since),
	).Scan(&n)
	if err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, author_name, author_avatar, is_anonymous, ip_address, user_id, created_at
		 FROM guestbook_entries
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var (
			e                              domain.Entry
			name, avatar, source, identity sql.NullString
			createdAt                      int64
		)
		if err := rows.Scan(&e.ID, &e.Message, &name, &avatar, &e.IsAnonymous, &source, &identity, &createdAt); err != nil {
			return nil, storeErr("scan", err)
		}
		e.AuthorName = fromNull(name)
		e.AuthorAvatar = fromNull(avatar)
		e.SourceAddress = fromNull(source)
		e.IdentityID = fromNull(identity)
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}
