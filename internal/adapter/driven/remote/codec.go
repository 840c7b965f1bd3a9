package remote

import (
	"fmt"
	"time"

	"passvault/internal/domain/model"
)

// wireRecord is the JSON representation used by the sync API. Timestamps are
// snake_case ISO-8601 strings on the wire and time.Time in the domain; the
// mapping must round-trip losslessly, so RFC3339Nano is used on encode.
type wireRecord struct {
	ID        string   `json:"id"`
	Service   string   `json:"service"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	URL       string   `json:"url,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Folder    string   `json:"folder,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	ExpiresAt string   `json:"expires_at,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func toWire(rec model.PasswordRecord) wireRecord {
	w := wireRecord{
		ID:        rec.ID,
		Service:   rec.Service,
		Username:  rec.Username,
		Password:  rec.Password,
		URL:       rec.URL,
		Notes:     rec.Notes,
		Folder:    rec.Folder,
		Tags:      rec.Tags,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if rec.ExpiresAt != nil {
		w.ExpiresAt = rec.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return w
}

func fromWire(w wireRecord) (model.PasswordRecord, error) {
	createdAt, err := parseWireTime(w.CreatedAt)
	if err != nil {
		return model.PasswordRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseWireTime(w.UpdatedAt)
	if err != nil {
		return model.PasswordRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}

	rec := model.PasswordRecord{
		ID:        w.ID,
		Service:   w.Service,
		Username:  w.Username,
		Password:  w.Password,
		URL:       w.URL,
		Notes:     w.Notes,
		Folder:    w.Folder,
		Tags:      w.Tags,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if w.ExpiresAt != "" {
		expiresAt, err := parseWireTime(w.ExpiresAt)
		if err != nil {
			return model.PasswordRecord{}, fmt.Errorf("parse expires_at: %w", err)
		}
		rec.ExpiresAt = &expiresAt
	}
	return rec, nil
}

func fromWireAll(ws []wireRecord) ([]model.PasswordRecord, error) {
	recs := make([]model.PasswordRecord, 0, len(ws))
	for _, w := range ws {
		rec, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", w.ID, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseWireTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
