package profiles

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/snapgram/internal/dbx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepository talks to the backend's Postgres database directly. It
// bypasses row-level security, so it is meant for trusted deployments that
// hold a database DSN.
type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres opens a pgx-backed *sql.DB for dsn and checks it answers.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) ([]Profile, error) {
	query :=
		`SELECT id, username, email, online FROM profiles
		 WHERE username = $1
		 `

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer rows.Close()

	found := make([]Profile, 0)
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Email, &p.Online); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		found = append(found, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return found, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, p Profile) error {
	query :=
		`INSERT INTO profiles (id, username, email, online)
		 VALUES ($1, $2, $3, $4)
		 `

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Username, p.Email, p.Online); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (r *PostgresRepository) SetOnline(ctx context.Context, id string, online bool) error {
	query :=
		`UPDATE profiles SET online = $1
		 WHERE id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, online, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
