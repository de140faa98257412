package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pubquiz-backend/internal/auth"
	"github.com/DoyleJ11/pubquiz-backend/internal/httpapi"
	"github.com/DoyleJ11/pubquiz-backend/internal/quiz"
	"github.com/DoyleJ11/pubquiz-backend/internal/registry"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

type fixture struct {
	server *httptest.Server
	store  *store.MemStore
	issuer *auth.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemStore()
	log := zap.NewNop()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	api := &httpapi.API{
		Store:    st,
		Registry: registry.New(st, log),
		Director: quiz.NewDirector(st),
		Ledger:   quiz.NewLedger(st),
		Auth:     issuer,
		Log:      log,
	}
	server := httptest.NewServer(httpapi.SetupRoutes(api))
	t.Cleanup(server.Close)
	return &fixture{server: server, store: st, issuer: issuer}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestLogin_NewTeamIsRegisteredAndJoined(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateRoom(context.Background(), &store.Room{ID: "r1", Name: "Quiz Night"}))

	resp, body := f.do(t, http.MethodPost, "/login", map[string]string{
		"room_id":   "r1",
		"team_name": "Alpha",
		"password":  "hunter2",
	}, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bearer", body["token_type"])

	teamID, err := f.issuer.Verify(body["access_token"].(string))
	require.NoError(t, err)
	team, err := f.store.GetTeam(context.Background(), teamID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", team.Name)
	assert.NotEqual(t, "hunter2", team.PasswordHash, "password is stored hashed")

	_, err = f.store.GetParticipation(context.Background(), teamID, "r1")
	assert.NoError(t, err, "first login creates the participation")
}

func TestLogin_ExistingTeamWrongPassword(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateRoom(context.Background(), &store.Room{ID: "r1"}))
	hash, err := auth.HashPassword("right")
	require.NoError(t, err)
	require.NoError(t, f.store.CreateTeam(context.Background(), &store.Team{Name: "Alpha", PasswordHash: hash}))

	resp, _ := f.do(t, http.MethodPost, "/login", map[string]string{
		"room_id":   "r1",
		"team_name": "Alpha",
		"password":  "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_UnknownRoom(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/login", map[string]string{
		"room_id":   "nope",
		"team_name": "Alpha",
		"password":  "x",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogin_SecondRoomAddsParticipation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateRoom(ctx, &store.Room{ID: "r1"}))
	require.NoError(t, f.store.CreateRoom(ctx, &store.Room{ID: "r2"}))

	creds := map[string]string{"room_id": "r1", "team_name": "Alpha", "password": "pw"}
	resp, _ := f.do(t, http.MethodPost, "/login", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	creds["room_id"] = "r2"
	resp, _ = f.do(t, http.MethodPost, "/login", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	team, err := f.store.GetTeamByName(ctx, "Alpha")
	require.NoError(t, err)
	_, err = f.store.GetParticipation(ctx, team.ID, "r1")
	assert.NoError(t, err)
	_, err = f.store.GetParticipation(ctx, team.ID, "r2")
	assert.NoError(t, err)
}

func TestUpdateTeamProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateRoom(ctx, &store.Room{ID: "r1"}))
	team := &store.Team{Name: "Alpha"}
	require.NoError(t, f.store.CreateTeam(ctx, team))
	token, err := f.issuer.Issue(team.ID, team.Name, "r1")
	require.NoError(t, err)

	resp, body := f.do(t, http.MethodPut, "/teams/profile",
		map[string]string{"slogan": "We know things"},
		map[string]string{"Authorization": "Bearer " + token})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "We know things", body["slogan"])

	resp, _ = f.do(t, http.MethodPut, "/teams/profile",
		map[string]string{"slogan": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRooms_CreateGeneratesIDAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/rooms", map[string]string{"name": "Quiz Night"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["id"], "id generated when omitted")

	resp, _ = f.do(t, http.MethodPost, "/api/rooms", map[string]string{"id": "r1", "name": "A"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/rooms", map[string]string{"id": "r1", "name": "B"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestQuestions_CreateAndActivateFlow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateRoom(context.Background(), &store.Room{ID: "r1"}))

	createQuestion := func(text string) float64 {
		resp, body := f.do(t, http.MethodPost, "/questions", map[string]any{
			"room_id":        "r1",
			"text":           text,
			"question_type":  "MULTIPLE_CHOICE",
			"correct_answer": "A",
			"points":         2,
			"options": []map[string]string{
				{"option_letter": "A", "option_text": "yes"},
				{"option_letter": "B", "option_text": "no"},
			},
		}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return body["id"].(float64)
	}
	q1 := createQuestion("first")
	q2 := createQuestion("second")

	resp, body := f.do(t, http.MethodPatch, fmt.Sprintf("/questions/%.0f/activate", q1), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_active"])

	resp, body = f.do(t, http.MethodPatch, fmt.Sprintf("/questions/%.0f/activate", q2), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_active"])

	resp, body = f.do(t, http.MethodGet, fmt.Sprintf("/questions/%.0f", q1), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_active"], "activating one deactivates the other")

	resp, body = f.do(t, http.MethodPatch, fmt.Sprintf("/questions/%.0f/deactivate", q2), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_active"])

	resp, _ = f.do(t, http.MethodPatch, "/questions/999/activate", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQuestions_RejectsUnknownRoomAndBadType(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateRoom(context.Background(), &store.Room{ID: "r1"}))

	resp, _ := f.do(t, http.MethodPost, "/questions", map[string]any{
		"room_id":        "nope",
		"text":           "q",
		"question_type":  "TEXT",
		"correct_answer": "x",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/questions", map[string]any{
		"room_id":        "r1",
		"text":           "q",
		"question_type":  "ESSAY",
		"correct_answer": "x",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
