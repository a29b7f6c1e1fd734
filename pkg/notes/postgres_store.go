package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// PostgresStore keeps notes in a note table. Refs are row ids.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ReadBody(ctx context.Context, ref Ref) (string, error) {
	query := "SELECT body FROM note WHERE id = $1"

	var body string
	err := s.db.QueryRowContext(ctx, query, string(ref)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoteNotFound, ref)
	}
	if err != nil {
		err := fmt.Errorf("could not read note %s: %w", ref, err)
		log.Error(err)
		return "", err
	}
	return body, nil
}

func (s *PostgresStore) WriteBody(ctx context.Context, ref Ref, body string) error {
	query := "UPDATE note SET body = $1, updated_at = now() WHERE id = $2"

	result, err := s.db.ExecContext(ctx, query, body, string(ref))
	if err != nil {
		err := fmt.Errorf("could not write note %s: %w", ref, err)
		log.Error(err)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check note write result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, ref)
	}
	return nil
}

// ResolveOrCreate returns the id of the note at path, inserting an empty
// note when none exists. The upsert keeps concurrent resolution of the same
// path from creating two rows.
func (s *PostgresStore) ResolveOrCreate(ctx context.Context, path string) (Ref, error) {
	query := `
		INSERT INTO note (id, path) VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET path = EXCLUDED.path
		RETURNING id`

	var id string
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), path).Scan(&id)
	if err != nil {
		err := fmt.Errorf("could not resolve note %s: %w", path, err)
		log.Error(err)
		return "", err
	}
	return Ref(id), nil
}
