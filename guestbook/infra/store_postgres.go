package infra

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"guestbook-gateway/guestbook/domain"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS guestbook_entries (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	message TEXT NOT NULL,
	author_name TEXT,
	author_avatar TEXT,
	is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
	ip_address TEXT,
	user_id TEXT,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	CONSTRAINT guestbook_entries_ip_only_anonymous CHECK (is_anonymous OR ip_address IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_guestbook_entries_quota
	ON guestbook_entries (ip_address, is_anonymous, created_at);
CREATE INDEX IF NOT EXISTS idx_guestbook_entries_created
	ON guestbook_entries (created_at DESC);
`

// PostgresStore implementa domain.EntryStore com PostgreSQL (lib/pq).
// id e created_at são atribuídos pelo banco.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres conecta usando um DSN (URL ou key=value) e aplica o schema.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, postgresSchema)
	return err
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Insert(ctx context.Context, e domain.NewEntry) (domain.Entry, error) {
	e = e.ForStorage()

	entry := domain.Entry{
		Message:       e.Message,
		AuthorName:    cloneString(e.AuthorName),
		AuthorAvatar:  cloneString(e.AuthorAvatar),
		IsAnonymous:   e.IsAnonymous,
		SourceAddress: cloneString(e.SourceAddress),
		IdentityID:    cloneString(e.IdentityID),
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO guestbook_entries
		   (message, author_name, author_avatar, is_anonymous, ip_address, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		entry.Message,
		nullString(entry.AuthorName),
		nullString(entry.AuthorAvatar),
		entry.IsAnonymous,
		nullString(entry.SourceAddress),
		nullString(entry.IdentityID),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return domain.Entry{}, storeErr("insert", err)
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	return entry, nil
}

func (s *PostgresStore) CountAnonymousSince(ctx context.Context, sourceAddress string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guestbook_entries
		 WHERE ip_address = $1 AND is_anonymous = TRUE AND created_at >= $2`,
		sourceAddress, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, author_name, author_avatar, is_anonymous, ip_address, user_id, created_at
		 FROM guestbook_entries
		 ORDER BY created_at DESC
		 LIMIT $1`,
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
		)
		if err := rows.Scan(&e.ID, &e.Message, &name, &avatar, &e.IsAnonymous, &source, &identity, &e.CreatedAt); err != nil {
			return nil, storeErr("scan", err)
		}
		e.AuthorName = fromNull(name)
		e.AuthorAvatar = fromNull(avatar)
		e.SourceAddress = fromNull(source)
		e.IdentityID = fromNull(identity)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}
