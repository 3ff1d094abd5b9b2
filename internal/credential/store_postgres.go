package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "antigravity-gateway/internal/errors"
	_ "github.com/lib/pq"
)

const createCredentialsTable = `
CREATE TABLE IF NOT EXISTS credentials (
	position     INTEGER PRIMARY KEY,
	data         JSONB NOT NULL
)`

// PostgresStore persists the credential list in a single Postgres table,
// keyed by slot position, for deployments that want the credential file
// backed by a managed database instead of local disk. Grounded on the
// teacher's database/sql + lib/pq idiom (internal/storage/postgres).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a Postgres-backed Store from a DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.StorageCorrupt("open postgres credential store: " + err.Error())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, apperrors.StorageCorrupt("connect postgres credential store: " + err.Error())
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	if _, err := db.ExecContext(ctx, createCredentialsTable); err != nil {
		return nil, apperrors.StorageCorrupt("create credentials table: " + err.Error())
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Load(ctx context.Context) ([]*Credential, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT position, data FROM credentials ORDER BY position ASC")
	if err != nil {
		return nil, apperrors.StorageCorrupt("list postgres credentials: " + err.Error())
	}
	defer rows.Close()

	var list []*Credential
	for rows.Next() {
		var pos int
		var data []byte
		if err := rows.Scan(&pos, &data); err != nil {
			return nil, apperrors.StorageCorrupt("scan postgres credential: " + err.Error())
		}
		var c Credential
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, apperrors.StorageCorrupt("parse postgres credential: " + err.Error())
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, list []*Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM credentials"); err != nil {
		return err
	}
	for i, c := range list {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO credentials (position, data) VALUES ($1, $2)", i, data); err != nil {
			return fmt.Errorf("insert credential at %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Import(ctx context.Context, records []*Credential, opts ImportOptions) (ImportResult, error) {
	existing, err := s.Load(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	merged, result := mergeImport(existing, records, opts)
	if err := s.Save(ctx, merged); err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func (s *PostgresStore) ReplaceAt(ctx context.Context, index int, record *Credential) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list[index] = record
	return s.Save(ctx, list)
}

func (s *PostgresStore) RemoveAt(ctx context.Context, index int) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list = append(list[:index], list[index+1:]...)
	return s.Save(ctx, list)
}

func (s *PostgresStore) SetEnabled(ctx context.Context, index int, enabled bool) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list[index].Enabled = enabled
	return s.Save(ctx, list)
}
