package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passvault/internal/domain/model"
)

func fastClient(baseURL string) *Client {
	// Tests keep retries on but shrink the backoff window via attempts=2.
	return NewClient(baseURL, WithTimeout(2*time.Second), WithAttempts(2))
}

func wireFixture(id string) wireRecord {
	return wireRecord{
		ID:        id,
		Service:   "Gmail",
		Username:  "alice@gmail.com",
		Password:  "p",
		CreatedAt: "2026-01-01T00:00:00Z",
		UpdatedAt: "2026-01-02T00:00:00Z",
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func TestClient_FindAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/passwords", r.URL.Path)
		writeSuccess(w, http.StatusOK, []wireRecord{wireFixture("pwd_1"), wireFixture("pwd_2")})
	}))
	defer srv.Close()

	recs, err := fastClient(srv.URL).FindAll(t.Context())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "pwd_1", recs[0].ID)
}

func TestClient_SearchSendsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gmail", r.URL.Query().Get("search"))
		writeSuccess(w, http.StatusOK, []wireRecord{wireFixture("pwd_1")})
	}))
	defer srv.Close()

	recs, err := fastClient(srv.URL).Search(t.Context(), "gmail")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestClient_SearchWhitespaceListsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("search"), "whitespace query must not be forwarded")
		writeSuccess(w, http.StatusOK, []wireRecord{})
	}))
	defer srv.Close()

	recs, err := fastClient(srv.URL).Search(t.Context(), "   ")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClient_Create(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body wireRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Gmail", body.Service)

		writeSuccess(w, http.StatusCreated, wireFixture("pwd_new"))
	}))
	defer srv.Close()

	rec, err := fastClient(srv.URL).Create(t.Context(), model.RecordInput{
		Service: "Gmail", Username: "alice@gmail.com", Password: "p",
	})
	require.NoError(t, err)
	assert.Equal(t, "pwd_new", rec.ID)
}

func TestClient_CreateValidatesLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid input must not reach the network")
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Create(t.Context(), model.RecordInput{Service: "", Username: "u", Password: "p"})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestClient_UpdateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		writeFailure(w, http.StatusNotFound, "password not found")
	}))
	defer srv.Close()

	pw := "x"
	_, err := fastClient(srv.URL).Update(t.Context(), "pwd_missing", model.RecordPatch{Password: &pw})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClient_UpdateSendsOnlyPatchedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"password": "p2"}, body)

		writeSuccess(w, http.StatusOK, wireFixture("pwd_1"))
	}))
	defer srv.Close()

	pw := "p2"
	_, err := fastClient(srv.URL).Update(t.Context(), "pwd_1", model.RecordPatch{Password: &pw})
	require.NoError(t, err)
}

func TestClient_DeleteIdempotentOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "password not found")
	}))
	defer srv.Close()

	// The service answers 404 for unknown IDs; the client keeps Delete
	// idempotent and treats that as success.
	assert.NoError(t, fastClient(srv.URL).Delete(t.Context(), "pwd_missing"))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeFailure(w, http.StatusInternalServerError, "boom")
			return
		}
		writeSuccess(w, http.StatusOK, []wireRecord{})
	}))
	defer srv.Close()

	recs, err := fastClient(srv.URL).FindAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int32(2), calls.Load(), "first attempt fails, retry succeeds")
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeFailure(w, http.StatusBadRequest, "bad input")
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).FindAll(t.Context())
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestClient_FindByIDMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "password not found")
	}))
	defer srv.Close()

	rec, err := fastClient(srv.URL).FindByID(t.Context(), "pwd_missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClient_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	assert.True(t, fastClient(srv.URL).Healthy(t.Context()))
}
