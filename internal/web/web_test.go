package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/balajivenky06/dandi/internal/auth"
	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/service"
	"github.com/balajivenky06/dandi/internal/session"
	"github.com/balajivenky06/dandi/internal/storage/memory"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store  *memory.Store
	keys   *service.Controller
	gates  *session.MemoryStore
	router http.Handler
}

func newTestEnv(t *testing.T, oidc *OIDC) *testEnv {
	t.Helper()

	store := memory.New()
	keys := service.NewController(store, service.WithClock(clockwork.NewFakeClock()))
	gates := session.NewMemoryStore(time.Minute)
	t.Cleanup(func() {
		keys.Close()
		_ = gates.Close()
	})

	require.NoError(t, keys.Load(context.Background()))

	return &testEnv{
		store: store,
		keys:  keys,
		gates: gates,
		router: NewRouter(Options{
			Keys:          keys,
			Validator:     service.NewValidator(store),
			Gates:         gates,
			GateTTL:       time.Hour,
			MaxKeys:       1000,
			ToastDuration: 2 * time.Second,
			OIDC:          oidc,
		}),
	}
}

func (e *testEnv) do(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) create(t *testing.T, name string) *domain.KeyRecord {
	t.Helper()
	rec, err := e.keys.Create(context.Background(), name, "dev")
	require.NoError(t, err)
	return rec
}

func TestDashboard_ListsMaskedKeys(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.create(t, "reporting")

	res := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, res.Code)

	body := res.Body.String()
	assert.Contains(t, body, "reporting")
	assert.Contains(t, body, rec.Secret[:10]+"••••")
	assert.NotContains(t, body, rec.Secret, "secret is masked by default")
	assert.Contains(t, body, "1 / 1000")
	assert.Contains(t, body, service.MsgCreated)
}

func TestDashboard_Create(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		form      url.Values
		wantError bool
	}{
		{"valid", url.Values{"name": {"billing"}, "type": {"prod"}}, false},
		{"default type", url.Values{"name": {"search"}}, false},
		{"blank name", url.Values{"name": {"   "}}, true},
		{"bad type", url.Values{"name": {"x"}, "type": {"staging"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.do(http.MethodPost, "/keys", tt.form)
			require.Equal(t, http.StatusSeeOther, res.Code)
			loc := res.Header().Get("Location")
			if tt.wantError {
				assert.True(t, strings.HasPrefix(loc, "/?error="), loc)
			} else {
				assert.Equal(t, "/", loc)
			}
		})
	}

	keys, err := env.store.ListKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "search", keys[0].Name)
	assert.Equal(t, domain.KeyTypeDev, keys[0].Type)
	assert.Equal(t, domain.KeyTypeProd, keys[1].Type)
}

func TestDashboard_RenameAndUndo(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.create(t, "old name")

	res := env.do(http.MethodPost, "/keys/"+rec.ID+"/edit", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, rec.ID, env.keys.Snapshot().EditingID)

	page := env.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, page, `action="/keys/`+rec.ID+`/save"`)

	res = env.do(http.MethodPost, "/keys/"+rec.ID+"/save", url.Values{"name": {"new name"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	st := env.keys.Snapshot()
	assert.Empty(t, st.EditingID)
	assert.Equal(t, "new name", st.Key(rec.ID).Name)

	page = env.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, page, `action="/keys/undo"`)

	env.do(http.MethodPost, "/keys/undo", nil)
	stored, err := env.store.FindKeyBySecret(context.Background(), rec.Secret)
	require.NoError(t, err)
	assert.Equal(t, "old name", stored.Name)
	assert.False(t, env.keys.Snapshot().UndoArmed())
}

func TestDashboard_Toasts(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.do(http.MethodPost, "/keys", url.Values{"name": {"toasty"}, "type": {"dev"}})
	require.Equal(t, http.StatusSeeOther, res.Code)

	res = env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, res.Code)
	page := res.Body.String()
	assert.Contains(t, page, "API Key created")
	assert.NotContains(t, page, `action="/keys/undo"`)
	assert.NotContains(t, page, "Template error")

	rec := env.keys.Snapshot().Keys[0]
	env.do(http.MethodPost, "/keys/"+rec.ID+"/edit", nil)
	env.do(http.MethodPost, "/keys/"+rec.ID+"/save", url.Values{"name": {"renamed"}})

	res = env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, res.Code)
	page = res.Body.String()
	assert.Contains(t, page, "API Key updated")
	assert.Contains(t, page, `action="/keys/undo"`)
	assert.NotContains(t, page, "Template error")
}

func TestDashboard_SaveInvalidNameKeepsEditing(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.create(t, "name")

	env.do(http.MethodPost, "/keys/"+rec.ID+"/edit", nil)
	res := env.do(http.MethodPost, "/keys/"+rec.ID+"/save", url.Values{"name": {""}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Contains(t, res.Header().Get("Location"), "error=")
	assert.Equal(t, rec.ID, env.keys.Snapshot().EditingID)
}

func TestDashboard_DeleteFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.create(t, "doomed")

	env.do(http.MethodPost, "/keys/"+rec.ID+"/delete", nil)
	page := env.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, page, "Are you sure you want to delete <strong>doomed</strong>")

	env.do(http.MethodPost, "/keys/delete/cancel", nil)
	assert.Empty(t, env.keys.Snapshot().PendingDeleteID)

	env.do(http.MethodPost, "/keys/"+rec.ID+"/delete", nil)
	res := env.do(http.MethodPost, "/keys/delete/confirm", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))
	assert.Empty(t, env.keys.Snapshot().Keys)

	n, err := env.store.CountKeys(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDashboard_VisibilityAndCopy(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.create(t, "visible")

	req := httptest.NewRequest(http.MethodPost, "/keys/"+rec.ID+"/visibility", nil)
	req.Header.Set("Accept", "application/json")
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"visible":true}`, res.Body.String())
	assert.Contains(t, env.do(http.MethodGet, "/", nil).Body.String(), rec.Secret)

	req = httptest.NewRequest(http.MethodPost, "/keys/"+rec.ID+"/copy", nil)
	req.Header.Set("Accept", "application/json")
	res = httptest.NewRecorder()
	env.router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, rec.Secret, body["key"])
	assert.Equal(t, service.MsgCopied, body["message"])
	assert.Equal(t, rec.ID, env.keys.Snapshot().CopiedID)

	req = httptest.NewRequest(http.MethodPost, "/keys/missing/copy", nil)
	req.Header.Set("Accept", "application/json")
	res = httptest.NewRecorder()
	env.router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNotFound, res.Code)

	fresh, err := env.store.FindKeyBySecret(context.Background(), rec.Secret)
	require.NoError(t, err)
	assert.Zero(t, fresh.Usage)
}

func TestDashboard_Dismiss(t *testing.T) {
	env := newTestEnv(t, nil)
	env.create(t, "toast")
	require.NotNil(t, env.keys.Snapshot().Notification)

	env.do(http.MethodPost, "/notifications/dismiss", nil)
	assert.Nil(t, env.keys.Snapshot().Notification)

	env.do(http.MethodPost, "/errors/dismiss", nil)
	assert.Nil(t, env.keys.Snapshot().Error)
}

func gateCookie(res *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range res.Result().Cookies() {
		if c.Name == gateCookieName {
			return c
		}
	}
	return nil
}

func TestPlayground_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantText   string
	}{
		{"empty", "", http.StatusBadRequest, "API key is required"},
		{"short", "abc", http.StatusBadRequest, "exactly 32 characters"},
		{"alphabet", strings.Repeat("a", 31) + "!", http.StatusBadRequest, "letters, numbers, hyphens, and underscores"},
		{"unknown", strings.Repeat("a", 32), http.StatusUnauthorized, "Invalid API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.do(http.MethodPost, "/playground", url.Values{"key": {tt.key}})
			assert.Equal(t, tt.wantStatus, res.Code)
			assert.Contains(t, res.Body.String(), tt.wantText)
			assert.Nil(t, gateCookie(res))
		})
	}
}

func TestPlayground_GatedFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.create(t, "gatekeeper")

	res := env.do(http.MethodGet, "/protected", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/playground", res.Header().Get("Location"))

	res = env.do(http.MethodPost, "/playground", url.Values{"key": {rec.Secret}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/protected", res.Header().Get("Location"))
	cookie := gateCookie(res)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotEqual(t, rec.Secret, cookie.Value, "cookie holds only the session id")

	res = env.do(http.MethodGet, "/protected", nil, cookie)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "gatekeeper")
	assert.Contains(t, res.Body.String(), "API Key Valid")

	// Deleting the key revokes access on the next load.
	require.NoError(t, env.keys.Delete(context.Background(), rec.ID))
	res = env.do(http.MethodGet, "/protected", nil, cookie)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.True(t, strings.HasPrefix(res.Header().Get("Location"), "/playground?error="))
	cleared := gateCookie(res)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	_, err := env.gates.Get(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, session.ErrNotFound)

	fresh, err := env.store.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestPlayground_Leave(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.create(t, "leaver")

	cookie := gateCookie(env.do(http.MethodPost, "/playground", url.Values{"key": {rec.Secret}}))
	require.NotNil(t, cookie)

	res := env.do(http.MethodPost, "/protected/leave", nil, cookie)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/playground", res.Header().Get("Location"))

	res = env.do(http.MethodGet, "/protected", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, res.Code)
}

func TestOperatorAuth(t *testing.T) {
	sealer, err := auth.NewSealer(bytes.Repeat([]byte("s"), 32))
	require.NoError(t, err)
	sessions := auth.NewSessionManager(sealer, time.Hour, false)

	env := newTestEnv(t, &OIDC{
		Provider: &auth.OIDCProvider{},
		Sessions: sessions,
		States:   auth.NewStateStore(sealer, false),
	})

	res := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))

	res = env.do(http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "/auth/login")

	signIn := httptest.NewRecorder()
	require.NoError(t, sessions.Create(signIn, &auth.Operator{Email: "ops@example.com", Name: "Ops"}))
	cookie := signIn.Result().Cookies()[0]

	res = env.do(http.MethodGet, "/", nil, cookie)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Ops")

	// The playground never requires an operator.
	res = env.do(http.MethodGet, "/playground", nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodGet, "/auth/callback?error=access_denied", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Contains(t, res.Header().Get("Location"), "/login?error=access_denied")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.do(http.MethodGet, "/static/app.js", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "execCommand")
}

func TestDashboard_Reload(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.store.InsertKey(context.Background(), &domain.NewKey{
		Name:   "from elsewhere",
		Type:   domain.KeyTypeProd,
		Secret: strings.Repeat("r", 32),
	})
	require.NoError(t, err)
	assert.Empty(t, env.keys.Snapshot().Keys)

	res := env.do(http.MethodPost, "/keys/reload", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))
	require.Len(t, env.keys.Snapshot().Keys, 1)
	assert.Contains(t, env.do(http.MethodGet, "/", nil).Body.String(), "from elsewhere")
}
