// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/courtstream/models"
)

// PostgreSQL is the raw database/sql store implementation.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_states (
			id SERIAL PRIMARY KEY,
			key TEXT UNIQUE NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (p *PostgreSQL) Get(ctx context.Context, sessionID string) (models.SessionSnapshot, bool, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM session_states WHERE key = $1`, Key(sessionID)).Scan(&payload)
	if err == sql.ErrNoRows {
		return models.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return models.SessionSnapshot{}, false, err
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return models.SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

func (p *PostgreSQL) Set(ctx context.Context, sessionID string, snap models.SessionSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO session_states (key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		Key(sessionID), payload)
	return err
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
