package sqlite

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

// RecordRepo is the SQLite implementation of the RecordStore port.
// Timestamps are stored as integer unix nanoseconds so that ordering by
// updated_at is exact; tags are serialized as a JSON array in a TEXT column.
type RecordRepo struct {
	db *DB
}

// NewRecordRepo creates a new RecordRepo backed by the given DB.
func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

const recordColumns = `id, service, username, password, url, notes, folder, tags, expires_at, created_at, updated_at`

// FindAll returns every record sorted by updated_at descending. Ties keep
// insertion order via the implicit rowid. An empty store yields an empty
// slice, not an error.
func (r *RecordRepo) FindAll(ctx context.Context) ([]model.PasswordRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM passwords ORDER BY updated_at DESC, rowid ASC`

	recs, err := r.queryRecords(ctx, r.db.Reader, query)
	if err != nil {
		return nil, &model.OperationError{Op: "find all records", Err: err}
	}
	return recs, nil
}

// FindByID retrieves a single record. Returns nil, nil if it does not exist.
func (r *RecordRepo) FindByID(ctx context.Context, id string) (*model.PasswordRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM passwords WHERE id = ?`

	rec, err := scanRecord(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("find record %q", id), Err: err}
	}
	return &rec, nil
}

// Search returns records whose service or username contains the query,
// case-insensitively, sorted by updated_at descending. A whitespace-only
// query behaves exactly like FindAll.
func (r *RecordRepo) Search(ctx context.Context, query string) ([]model.PasswordRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return r.FindAll(ctx)
	}

	// instr on lowered columns rather than LIKE: no pattern metacharacters
	// to escape, and the match is case-insensitive regardless of PRAGMAs.
	stmt := `SELECT ` + recordColumns + ` FROM passwords
		WHERE instr(lower(service), lower(?)) > 0 OR instr(lower(username), lower(?)) > 0
		ORDER BY updated_at DESC, rowid ASC`

	recs, err := r.queryRecords(ctx, r.db.Reader, stmt, q, q)
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("search records %q", q), Err: err}
	}
	return recs, nil
}

// Create validates the required fields, assigns identity and timestamps,
// and persists the record. The stored record is returned.
func (r *RecordRepo) Create(ctx context.Context, input model.RecordInput) (*model.PasswordRecord, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	rec := newRecord(input)
	if err := insertRecord(ctx, r.db.Writer, rec); err != nil {
		return nil, &model.OperationError{Op: "create record", Err: err}
	}
	return &rec, nil
}

// Update merges the patch onto the stored record, bumps updated_at, and
// persists. Returns model.ErrNotFound when the ID is absent. ID and
// created_at are never altered.
func (r *RecordRepo) Update(ctx context.Context, id string, patch model.RecordPatch) (*model.PasswordRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
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

// Delete removes the record. Deleting an absent ID is not an error.
func (r *RecordRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Writer.ExecContext(ctx, `DELETE FROM passwords WHERE id = ?`, id)
	if err != nil {
		return &model.OperationError{Op: fmt.Sprintf("delete record %q", id), Err: err}
	}
	return nil
}

// Clear removes every record unconditionally.
func (r *RecordRepo) Clear(ctx context.Context) error {
	_, err := r.db.Writer.ExecContext(ctx, `DELETE FROM passwords`)
	if err != nil {
		return &model.OperationError{Op: "clear records", Err: err}
	}
	return nil
}

// Stats returns the record count and whether the store holds anything.
func (r *RecordRepo) Stats(ctx context.Context) (model.Stats, error) {
	var total int
	err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM passwords`).Scan(&total)
	if err != nil {
		return model.Stats{}, &model.OperationError{Op: "count records", Err: err}
	}
	return model.Stats{Total: total, HasAny: total > 0}, nil
}

// BatchCreate inserts all payloads within one transaction: either every
// record is persisted or none are. Results come back in input order.
func (r *RecordRepo) BatchCreate(ctx context.Context, inputs []model.RecordInput) ([]model.PasswordRecord, error) {
	for i, input := range inputs {
		if err := input.Validate(); err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, &model.OperationError{Op: "batch create", Err: err}
	}
	defer tx.Rollback()

	recs := make([]model.PasswordRecord, 0, len(inputs))
	for i, input := range inputs {
		rec := newRecord(input)
		if err := insertRecord(ctx, tx, rec); err != nil {
			return nil, &model.OperationError{Op: fmt.Sprintf("batch create item %d", i), Err: err}
		}
		recs = append(recs, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, &model.OperationError{Op: "batch create", Err: err}
	}
	return recs, nil
}

// BatchUpdate applies all patches within one transaction. Any missing ID
// aborts the whole batch with model.ErrNotFound.
func (r *RecordRepo) BatchUpdate(ctx context.Context, patches []model.PatchByID) ([]model.PasswordRecord, error) {
	for i, p := range patches {
		if err := p.Patch.Validate(); err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
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

// newRecord materializes a create payload with fresh identity and with
// created_at == updated_at.
func newRecord(input model.RecordInput) model.PasswordRecord {
	now := time.Now().UTC()
	return model.PasswordRecord{
		ID:        model.NewRecordID(),
		Service:   input.Service,
		Username:  input.Username,
		Password:  input.Password,
		URL:       input.URL,
		Notes:     input.Notes,
		Folder:    input.Folder,
		Tags:      input.Tags,
		ExpiresAt: input.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, rec model.PasswordRecord) error {
	tagsJSON, err := marshalTags(rec.Tags)
	if err != nil {
		return err
	}

	const stmt = `
		INSERT INTO passwords (id, service, username, password, url, notes, folder, tags, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, stmt,
		rec.ID, rec.Service, rec.Username, rec.Password,
		rec.URL, rec.Notes, rec.Folder, tagsJSON,
		nanosOrNil(rec.ExpiresAt), rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	)
	return err
}

// updateInTx performs the read-merge-write cycle for a single record inside
// an open transaction. updated_at is bumped strictly above its previous
// value even when the clock has not advanced.
func updateInTx(ctx context.Context, tx *sql.Tx, id string, patch model.RecordPatch) (*model.PasswordRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM passwords WHERE id = ?`

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
		now = existing.UpdatedAt.Add(time.Nanosecond)
	}
	rec.UpdatedAt = now

	tagsJSON, err := marshalTags(rec.Tags)
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("update record %q", id), Err: err}
	}

	const stmt = `
		UPDATE passwords
		SET service = ?, username = ?, password = ?, url = ?, notes = ?, folder = ?, tags = ?, expires_at = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = tx.ExecContext(ctx, stmt,
		rec.Service, rec.Username, rec.Password, rec.URL, rec.Notes, rec.Folder,
		tagsJSON, nanosOrNil(rec.ExpiresAt), rec.UpdatedAt.UnixNano(), id,
	)
	if err != nil {
		return nil, &model.OperationError{Op: fmt.Sprintf("update record %q", id), Err: err}
	}
	return &rec, nil
}

func (r *RecordRepo) queryRecords(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.PasswordRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
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

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (model.PasswordRecord, error) {
	var (
		rec       model.PasswordRecord
		tagsJSON  string
		expiresNS sql.NullInt64
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(
		&rec.ID, &rec.Service, &rec.Username, &rec.Password,
		&rec.URL, &rec.Notes, &rec.Folder, &tagsJSON,
		&expiresNS, &createdNS, &updatedNS,
	)
	if err != nil {
		return model.PasswordRecord{}, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		return model.PasswordRecord{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	if len(rec.Tags) == 0 {
		rec.Tags = nil
	}
	if expiresNS.Valid {
		t := time.Unix(0, expiresNS.Int64).UTC()
		rec.ExpiresAt = &t
	}
	rec.CreatedAt = time.Unix(0, createdNS).UTC()
	rec.UpdatedAt = time.Unix(0, updatedNS).UTC()
	return rec, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

func nanosOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
