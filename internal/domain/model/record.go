package model

import (
	"strings"
	"time"
)

// Field length limits enforced on create and update.
const (
	MaxServiceLen  = 100
	MaxUsernameLen = 100
	MaxPasswordLen = 500
)

// PasswordRecord is one stored credential entry. ID is assigned by the store
// at creation time and never changes. CreatedAt is set once; UpdatedAt is
// refreshed on every successful mutation and is always >= CreatedAt.
type PasswordRecord struct {
	ID       string
	Service  string
	Username string
	Password string

	// Extended attributes carried through from the remote schema. The local
	// store persists them verbatim and applies no validation.
	URL       string
	Notes     string
	Folder    string
	Tags      []string
	ExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordInput is the payload accepted by Create. The store assigns identity
// and timestamps; everything else is taken from here.
type RecordInput struct {
	Service  string
	Username string
	Password string

	URL       string
	Notes     string
	Folder    string
	Tags      []string
	ExpiresAt *time.Time
}

// RecordPatch is a partial update. Nil fields are left untouched.
// ID and CreatedAt are not patchable.
type RecordPatch struct {
	Service  *string
	Username *string
	Password *string

	URL       *string
	Notes     *string
	Folder    *string
	Tags      []string
	ExpiresAt *time.Time
}

// PatchByID pairs a record ID with its patch, for batch updates.
type PatchByID struct {
	ID    string
	Patch RecordPatch
}

// Stats summarizes the contents of a store.
type Stats struct {
	Total  int
	HasAny bool
}

// Validate checks the required-field and length rules for a create payload.
// Values are compared after trimming; the stored values are NOT trimmed.
func (in RecordInput) Validate() error {
	if err := validateField("service", in.Service, MaxServiceLen); err != nil {
		return err
	}
	if err := validateField("username", in.Username, MaxUsernameLen); err != nil {
		return err
	}
	return validateField("password", in.Password, MaxPasswordLen)
}

// Validate checks that any field present in the patch still satisfies the
// required-field and length rules.
func (p RecordPatch) Validate() error {
	if p.Service != nil {
		if err := validateField("service", *p.Service, MaxServiceLen); err != nil {
			return err
		}
	}
	if p.Username != nil {
		if err := validateField("username", *p.Username, MaxUsernameLen); err != nil {
			return err
		}
	}
	if p.Password != nil {
		if err := validateField("password", *p.Password, MaxPasswordLen); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch onto a copy of rec and returns it. ID, CreatedAt
// and UpdatedAt are never altered here; the store owns UpdatedAt.
func (p RecordPatch) Apply(rec PasswordRecord) PasswordRecord {
	if p.Service != nil {
		rec.Service = *p.Service
	}
	if p.Username != nil {
		rec.Username = *p.Username
	}
	if p.Password != nil {
		rec.Password = *p.Password
	}
	if p.URL != nil {
		rec.URL = *p.URL
	}
	if p.Notes != nil {
		rec.Notes = *p.Notes
	}
	if p.Folder != nil {
		rec.Folder = *p.Folder
	}
	if p.Tags != nil {
		rec.Tags = p.Tags
	}
	if p.ExpiresAt != nil {
		rec.ExpiresAt = p.ExpiresAt
	}
	return rec
}

func validateField(name, value string, maxLen int) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return &ValidationError{Field: name, Reason: "must not be empty"}
	}
	if len(trimmed) > maxLen {
		return &ValidationError{Field: name, Reason: "too long"}
	}
	return nil
}
