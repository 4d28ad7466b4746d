package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlobEmoji/Artemis/httpapi"
	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/prompt"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeInfo struct {
	cardErr error
}

func (f fakeInfo) Card(_ context.Context, userID string) (model.Card, error) {
	if f.cardErr != nil {
		return model.Card{}, f.cardErr
	}
	return model.Card{UserID: userID, Approved: 2, Total: 5, Progress: "pending"}, nil
}

func (fakeInfo) Prompt() prompt.Snapshot {
	return prompt.Snapshot{
		Phase:    "during_event",
		Current:  &prompt.Prompt{ID: 1, Name: "Dogs"},
		Number:   2,
		Total:    5,
		Deadline: time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
		Past:     []prompt.Prompt{{ID: 0, Name: "Cats"}},
	}
}

func do(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHealth(t *testing.T) {
	w := do(t, httpapi.NewRouter(fakePinger{}, fakeInfo{}, nil), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, httpapi.NewRouter(fakePinger{err: errors.New("database is locked")}, fakeInfo{}, nil), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "database is locked")
}

func TestPrompt(t *testing.T) {
	w := do(t, httpapi.NewRouter(fakePinger{}, fakeInfo{}, nil), "/v1/prompt")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "during_event", body["phase"])
	assert.Equal(t, map[string]any{"id": float64(1), "name": "Dogs"}, body["current"])
	assert.Equal(t, "2026-10-03T00:00:00Z", body["deadline"])
}

func TestCard(t *testing.T) {
	w := do(t, httpapi.NewRouter(fakePinger{}, fakeInfo{}, nil), "/v1/users/42/card")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"42","approved":2,"total":5,"progress":"pending"}`, w.Body.String())

	w = do(t, httpapi.NewRouter(fakePinger{}, fakeInfo{cardErr: errors.New("boom")}, nil), "/v1/users/42/card")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
