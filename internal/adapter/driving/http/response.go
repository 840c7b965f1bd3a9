package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"passvault/internal/domain/model"
)

// responseEnvelope is the uniform JSON shape of every sync API response.
type responseEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeData writes a success envelope with the given status code.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, responseEnvelope{Success: true, Data: data})
}

// writeError writes a failure envelope with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, responseEnvelope{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// recordResponse is the wire representation of one record: snake_case
// timestamps as ISO-8601 strings.
type recordResponse struct {
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

func toRecordResponse(rec model.PasswordRecord) recordResponse {
	resp := recordResponse{
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
		resp.ExpiresAt = rec.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return resp
}

func toRecordResponses(recs []model.PasswordRecord) []recordResponse {
	out := make([]recordResponse, len(recs))
	for i, rec := range recs {
		out[i] = toRecordResponse(rec)
	}
	return out
}
