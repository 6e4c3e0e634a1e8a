package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sumo/backend/internal/middleware"
	"github.com/sumo/backend/internal/models"
	"github.com/sumo/backend/internal/services"
	"github.com/sumo/backend/internal/storage"
)

const testSecret = "handler-test-secret"

type fakeShortener struct {
	url string
	err error
}

func (f *fakeShortener) GenerateShortURL(_ context.Context, _ string) (string, error) {
	return f.url, f.err
}

type testServer struct {
	handler   http.Handler
	db        *gorm.DB
	shortener *fakeShortener
	perms     *services.PermissionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := storage.SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))

	perms := services.NewPermissionService(db, 0)
	shortener := &fakeShortener{url: "https://bit.ly/abc"}

	return &testServer{
		handler: NewRouter(RouterDeps{
			Verifier:     middleware.NewJWTVerifier(testSecret),
			Permissions:  perms,
			Moderation:   services.NewModerationService(services.NewGormAccountStore(db)),
			Contributors: services.NewContributorService(db),
			Shortener:    shortener,
		}),
		db:        db,
		shortener: shortener,
		perms:     perms,
	}
}

// token returns a bearer token for userID holding the given permissions.
func (s *testServer) token(t *testing.T, userID string, codenames ...string) string {
	t.Helper()
	for _, c := range codenames {
		require.NoError(t, s.perms.Grant(context.Background(), userID, c))
	}
	token, err := middleware.IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var out models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBanFlow(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)
	token := s.token(t, "mod1", models.PermBanAccount)

	rec := s.do(t, http.MethodPost, "/api/customercare/ban", token, map[string]string{"username": "@spammer"})
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal(MsgAccountBanned, decodeResponse(t, rec).Success)

	rec = s.do(t, http.MethodPost, "/api/customercare/ban", token, map[string]string{"username": "spammer"})
	assert.Equal(http.StatusConflict, rec.Code)
	assert.Equal(MsgAlreadyBanned, decodeResponse(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/customercare/banned", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var banned []models.SocialAccount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &banned))
	require.Len(t, banned, 1)
	assert.Equal("spammer", banned[0].Username)
	assert.True(banned[0].Banned)
	assert.False(banned[0].Ignored)

	rec = s.do(t, http.MethodPost, "/api/customercare/unban", token, map[string][]string{"usernames": {"@spammer", "nobody"}})
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("1 users unbanned successfully.", decodeResponse(t, rec).Success)

	rec = s.do(t, http.MethodGet, "/api/customercare/banned", token, nil)
	assert.JSONEq(`[]`, rec.Body.String())
}

func TestBanValidation(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)
	token := s.token(t, "mod1", models.PermBanAccount)

	rec := s.do(t, http.MethodPost, "/api/customercare/ban", token, map[string]string{})
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Equal(models.MsgUsernameNotProvided, decodeResponse(t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/customercare/ban", token, map[string]string{"username": "@"})
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/customercare/unban", token, map[string][]string{"usernames": {}})
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Equal(models.MsgUsernamesNotProvided, decodeResponse(t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/customercare/unban", token, map[string][]string{"usernames": {"", ""}})
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Equal(models.MsgUsernamesNotProvided, decodeResponse(t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/customercare/unban", token, map[string][]string{"usernames": {"@"}})
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("0 users unbanned successfully.", decodeResponse(t, rec).Success)

	req := httptest.NewRequest(http.MethodPost, "/api/customercare/ban", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	raw := httptest.NewRecorder()
	s.handler.ServeHTTP(raw, req)
	assert.Equal(http.StatusBadRequest, raw.Code)
}

func TestOversizedBodyRejected(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)
	token := s.token(t, "mod1", models.PermBanAccount)

	rec := s.do(t, http.MethodPost, "/api/customercare/ban", token, map[string]string{"username": strings.Repeat("a", maxBodyBytes)})
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Equal(msgInvalidBody, decodeResponse(t, rec).Error)

	var count int64
	require.NoError(t, s.db.Model(&models.SocialAccount{}).Count(&count).Error)
	assert.Zero(count)
}

func TestModerationRequiresPermission(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)
	ignorer := s.token(t, "mod2", models.PermIgnoreAccount)

	rec := s.do(t, http.MethodPost, "/api/customercare/ban", "", map[string]string{"username": "spammer"})
	assert.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/customercare/ban", ignorer, map[string]string{"username": "spammer"})
	assert.Equal(http.StatusForbidden, rec.Code)
	assert.Equal(middleware.MsgPermissionDenied, decodeResponse(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/customercare/banned", ignorer, nil)
	assert.Equal(http.StatusForbidden, rec.Code)

	var count int64
	require.NoError(t, s.db.Model(&models.SocialAccount{}).Count(&count).Error)
	assert.Zero(count)
}

func TestIgnoreFlow(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)
	token := s.token(t, "mod1", models.PermIgnoreAccount)

	rec := s.do(t, http.MethodPost, "/api/customercare/ignore", token, map[string]string{"username": "noisy"})
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal(MsgAccountIgnored, decodeResponse(t, rec).Success)

	rec = s.do(t, http.MethodPost, "/api/customercare/ignore", token, map[string]string{"username": "@noisy"})
	assert.Equal(http.StatusConflict, rec.Code)
	assert.Equal(MsgAlreadyIgnored, decodeResponse(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/customercare/ignored", token, nil)
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"username":"noisy"`)

	rec = s.do(t, http.MethodPost, "/api/customercare/unignore", token, map[string][]string{"usernames": {"noisy", "other"}})
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("1 users unignored successfully.", decodeResponse(t, rec).Success)
}

func TestIgnoreRejectsOtherMethods(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)

	// method check runs before the permission check
	noPerms := s.token(t, "viewer")
	rec := s.do(t, http.MethodGet, "/api/customercare/ignore", noPerms, nil)
	assert.Equal(http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(MsgNotPostRequest, decodeResponse(t, rec).Error)

	rec = s.do(t, http.MethodPut, "/api/customercare/ignore", noPerms, map[string]string{"username": "noisy"})
	assert.Equal(http.StatusMethodNotAllowed, rec.Code)

	// other endpoints use the router's plain 405
	banner := s.token(t, "mod1", models.PermBanAccount)
	rec = s.do(t, http.MethodGet, "/api/customercare/ban", banner, nil)
	assert.Equal(http.StatusMethodNotAllowed, rec.Code)
	assert.NotContains(rec.Body.String(), MsgNotPostRequest)
}

func TestActiveContributorsEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)
	token := s.token(t, "dash", models.PermViewDashboard)

	require.NoError(t, s.db.Create(&[]models.User{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}).Error)
	require.NoError(t, s.db.Create(&models.Document{ID: 1, Title: "Sync", Locale: "en-US"}).Error)
	reviewer := uint(2)
	reviewed := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.db.Create(&models.Revision{
		DocumentID: 1,
		CreatorID:  1,
		Created:    time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		ReviewerID: &reviewer,
		Reviewed:   &reviewed,
	}).Error)

	rec := s.do(t, http.MethodGet, "/api/kb/contributors?from=2024-03-01&to=2024-03-04", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out models.ContributorsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(1, out.Count)
	require.Len(t, out.Users, 1)
	assert.Equal("alice", out.Users[0].Username)

	rec = s.do(t, http.MethodGet, "/api/kb/contributors?from=2024-03-01&locale=en-US", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(2, out.Count)

	rec = s.do(t, http.MethodGet, "/api/kb/contributors", token, nil)
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Contains(decodeResponse(t, rec).Errors, "from")

	rec = s.do(t, http.MethodGet, "/api/kb/contributors?from=someday", token, nil)
	assert.Equal(http.StatusBadRequest, rec.Code)

	other := s.token(t, "mod1", models.PermBanAccount)
	rec = s.do(t, http.MethodGet, "/api/kb/contributors?from=2024-03-01", other, nil)
	assert.Equal(http.StatusForbidden, rec.Code)
}

func TestShortURL(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)
	token := s.token(t, "anyone")

	rec := s.do(t, http.MethodPost, "/api/shorturl", token, map[string]string{"url": "https://support.example.com/kb/sync"})
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"url":"https://bit.ly/abc"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/shorturl", token, map[string]string{"url": "not a url"})
	assert.Equal(http.StatusBadRequest, rec.Code)

	cases := []struct {
		err  error
		code int
	}{
		{services.ErrBitlyRateLimited, http.StatusTooManyRequests},
		{services.ErrBitlyUnauthorized, http.StatusBadGateway},
		{&services.BitlyError{Code: 500}, http.StatusBadGateway},
		{errors.New("dial tcp: timeout"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		s.shortener.err = tc.err
		rec = s.do(t, http.MethodPost, "/api/shorturl", token, map[string]string{"url": "https://support.example.com/"})
		assert.Equal(tc.code, rec.Code, tc.err.Error())
	}
}
