package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries runs the application's SQL against a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const recordMigration = `INSERT INTO schema_migrations (version) VALUES (?)`

// RecordMigration marks a migration file as applied.
func (q *Queries) RecordMigration(ctx context.Context, version string) error {
	_, err := q.db.ExecContext(ctx, recordMigration, version)
	return err
}

// Instance is a Mastodon server whose canonical domain was confirmed by the
// server itself.
type Instance struct {
	Domain          string
	FirstVerifiedAt time.Time
	LastVerifiedAt  time.Time
	VerifyCount     int64
}

const upsertInstance = `
INSERT INTO instances (domain) VALUES (?)
ON CONFLICT(domain) DO UPDATE SET
    last_verified_at = CURRENT_TIMESTAMP,
    verify_count = verify_count + 1
`

// UpsertInstance records a successful verification of domain.
func (q *Queries) UpsertInstance(ctx context.Context, domain string) error {
	_, err := q.db.ExecContext(ctx, upsertInstance, domain)
	return err
}

const getInstance = `
SELECT domain, first_verified_at, last_verified_at, verify_count
FROM instances WHERE domain = ?
`

// GetInstance returns the instance for domain or sql.ErrNoRows.
func (q *Queries) GetInstance(ctx context.Context, domain string) (Instance, error) {
	row := q.db.QueryRowContext(ctx, getInstance, domain)
	var i Instance
	err := row.Scan(&i.Domain, &i.FirstVerifiedAt, &i.LastVerifiedAt, &i.VerifyCount)
	return i, err
}

const listInstances = `
SELECT domain, first_verified_at, last_verified_at, verify_count
FROM instances ORDER BY last_verified_at DESC, domain
`

// ListInstances returns all instances, most recently verified first.
func (q *Queries) ListInstances(ctx context.Context) ([]Instance, error) {
	rows, err := q.db.QueryContext(ctx, listInstances)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Instance
	for rows.Next() {
		var i Instance
		if err := rows.Scan(&i.Domain, &i.FirstVerifiedAt, &i.LastVerifiedAt, &i.VerifyCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countInstances = `SELECT COUNT(*) FROM instances`

// CountInstances returns the number of known instances.
func (q *Queries) CountInstances(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countInstances)
	var count int64
	err := row.Scan(&count)
	return count, err
}
