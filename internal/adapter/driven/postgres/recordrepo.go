package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"passvault/internal/domain/model"
	"passvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordStore = (*RecordRepo)(nil)

// RecordRepo is the PostgreSQL implementation of the RecordStore port.
type RecordRepo struct {
	db *sql.DB
}

// NewRecordRepo creates a new RecordRepo over the given connection pool.
func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

const recordColumns = `id, service, username, password, url, notes, folder, tags, expires_at, created_at, updated_at`

// FindAll returns every record, most recently updated first, insertion
// order breaking ties.
func (r *RecordRepo) FindAll(ctx context.Context) ([]model.PasswordRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM passwords ORDER BY updated_at DESC, seq ASC`

	recs, err := r.queryRecords(ctx, query)
	if err != nil {
		return nil, &model.OperationError{Op: "find all records", Err: err}
	}
	return recs, nil
}

// FindByID retrieves one record, or nil, nil when absent.
func (r *RecordRepo) FindByID(ctx context.Context, id string) (*model.PasswordRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM passwords WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("find record %q", id), Err: err}
	}
	return &rec, nil
}

// Search matches the query case-insensitively against service or username.
// A whitespace-only query lists everything.
func (r *RecordRepo) Search(ctx context.Context, query string) ([]model.PasswordRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return r.FindAll(ctx)
	}

	stmt := `SELECT ` + recordColumns + ` FROM passwords
		WHERE position(lower($1) in lower(service)) > 0 OR position(lower($1) in lower(username)) > 0
		ORDER BY updated_at DESC, seq ASC`

	recs, err := r.queryRecords(ctx, stmt, q)
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("search records %q", q), Err: err}
	}
	return recs, nil
}

// Create inserts a record, resolving a (service, username) conflict by
// upsert: the existing row keeps its id and created_at, everything else is
// overwritten and updated_at refreshed. Last write wins.
func (r *RecordRepo) Create(ctx context.Context, input model.RecordInput) (*model.PasswordRecord, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tagsJSON, err := marshalTags(input.Tags)
	if err != nil {
		return nil, &model.OperationError{Op: "create record", Err: err}
	}

	stmt := `
		INSERT INTO passwords (id, service, username, password, url, notes, folder, tags, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (service, username) DO UPDATE SET
			password = excluded.password,
			url = excluded.url,
			notes = excluded.notes,
			folder = excluded.folder,
			tags = excluded.tags,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.db.QueryRowContext(ctx, stmt,
		model.NewRecordID(), input.Service, input.Username, input.Password,
		input.URL, input.Notes, input.Folder, tagsJSON,
		timeOrNil(input.ExpiresAt), now,
	))
	if err != nil {
		return nil, &model.OperationError{Op: "create record", Err: err}
	}
	return &rec, nil
}

// Update merges the patch onto the stored record inside one transaction.
// Returns model.ErrNotFound when the ID is absent.
func (r *RecordRepo) Update(ctx context.Context, id string, patch model.RecordPatch) (*model.PasswordRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("update record %q", id), Err: err}
	}
	defer tx.Rollback()

	rec, err := updateInTx(ctx, tx, id, patch)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("update record %q", id), Err: err}
	}
	return rec, nil
}

// Delete removes the record; an absent ID is not an error.
func (r *RecordRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM passwords WHERE id = $1`, id)
	if err != nil {
		return &model.OperationError{Op: fmt.Sprintf("delete record %q", id), Err: err}
	}
	return nil
}

// Clear removes every record.
func (r *RecordRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM passwords`)
	if err != nil {
		return &model.OperationError{Op: "clear records", Err: err}
	}
	return nil
}

// Stats returns record counts.
func (r *RecordRepo) Stats(ctx context.Context) (model.Stats, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passwords`).Scan(&total)
	if err != nil {
		return model.Stats{}, &model.OperationError{Op: "count records", Err: err}
	}
	return model.Stats{Total: total, HasAny: total > 0}, nil
}

// BatchCreate inserts all payloads in one transaction.
func (r *RecordRepo) BatchCreate(ctx context.Context, inputs []model.RecordInput) ([]model.PasswordRecord, error) {
	for i, input := range inputs {
		if err := input.Validate(); err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &model.OperationError{Op: "batch create", Err: err}
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	recs := make([]model.PasswordRecord, 0, len(inputs))
	for i, input := range inputs {
		tagsJSON, err := marshalTags(input.Tags)
		if err != nil {
			return nil, &model.OperationError{Op: fmt.Sprintf("batch create item %d", i), Err: err}
		}

		stmt := `
			INSERT INTO passwords (id, service, username, password, url, notes, folder, tags, expires_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			ON CONFLICT (service, username) DO UPDATE SET
				password = excluded.password,
				url = excluded.url,
				notes = excluded.notes,
				folder = excluded.folder,
				tags = excluded.tags,
				expires_at = excluded.expires_at,
				updated_at = excluded.updated_at
			RETURNING ` + recordColumns

		rec, err := scanRecord(tx.QueryRowContext(ctx, stmt,
			model.NewRecordID(), input.Service, input.Username, input.Password,
			input.URL, input.Notes, input.Folder, tagsJSON,
			timeOrNil(input.ExpiresAt), now,
		))
		if err != nil {
			return nil, &model.OperationError{Op: fmt.Sprintf("batch create item %d", i), Err: err}
		}
		recs = append(recs, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, &model.OperationError{Op: "batch create", Err: err}
	}
	return recs, nil
}

// BatchUpdate applies all patches in one transaction; a missing ID aborts
// the whole batch.
func (r *RecordRepo) BatchUpdate(ctx context.Context, patches []model.PatchByID) ([]model.PasswordRecord, error) {
	for i, p := range patches {
		if err := p.Patch.Validate(); err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &model.OperationError{Op: "batch update", Err: err}
	}
	defer tx.Rollback()

	recs := make([]model.PasswordRecord, 0, len(patches))
	for _, p := range patches {
		rec, err := updateInTx(ctx, tx, p.ID, p.Patch)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, &model.OperationError{Op: "batch update", Err: err}
	}
	return recs, nil
}

func updateInTx(ctx context.Context, tx *sql.Tx, id string, patch model.RecordPatch) (*model.PasswordRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM passwords WHERE id = $1 FOR UPDATE`

	existing, err := scanRecord(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("load record %q", id), Err: err}
	}

	rec := patch.Apply(existing)

	now := time.Now().UTC()
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Microsecond)
	}
	rec.UpdatedAt = now

	tagsJSON, err := marshalTags(rec.Tags)
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("update record %q", id), Err: err}
	}

	const stmt = `
		UPDATE passwords
		SET service = $1, username = $2, password = $3, url = $4, notes = $5, folder = $6, tags = $7, expires_at = $8, updated_at = $9
		WHERE id = $10
	`
	_, err = tx.ExecContext(ctx, stmt,
		rec.Service, rec.Username, rec.Password, rec.URL, rec.Notes, rec.Folder,
		tagsJSON, timeOrNil(rec.ExpiresAt), rec.UpdatedAt, id,
	)
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("update record %q", id), Err: err}
	}
	return &rec, nil
}

func (r *RecordRepo) queryRecords(ctx context.Context, query string, args ...any) ([]model.PasswordRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []model.PasswordRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return recs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (model.PasswordRecord, error) {
	var (
		rec       model.PasswordRecord
		tagsJSON  []byte
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.Service, &rec.Username, &rec.Password,
		&rec.URL, &rec.Notes, &rec.Folder, &tagsJSON,
		&expiresAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return model.PasswordRecord{}, err
	}

	if err := json.Unmarshal(tagsJSON, &rec.Tags); err != nil {
		return model.PasswordRecord{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	if len(rec.Tags) == 0 {
		rec.Tags = nil
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		rec.ExpiresAt = &t
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return data, nil
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
