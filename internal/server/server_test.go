package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"contacts-service/internal/auth"
	"contacts-service/internal/avatar"
	"contacts-service/internal/repository/gormrepo"
	"contacts-service/internal/server"
	"contacts-service/internal/testutil"
	"contacts-service/pkg/config"
)

const validPhone = "(123) 456-7890"

type testApp struct {
	t     *testing.T
	e     *echo.Echo
	users *gormrepo.UserRepository
}

func newTestApp(t *testing.T, mutate ...func(*config.Config)) *testApp {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	dir := filepath.Join(t.TempDir(), "avatars")

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Env: "test", PublicURL: "http://localhost:3000"},
		JWT:    config.JWTConfig{SigningKey: "test-secret", Expiration: time.Hour},
		Avatar: config.AvatarConfig{Storage: config.StorageLocal, Dir: dir, URLPrefix: "/avatars", Size: 32},
	}
	for _, m := range mutate {
		m(cfg)
	}

	store, err := avatar.NewLocalStorage(dir, cfg.Avatar.URLPrefix)
	require.NoError(t, err)

	users := gormrepo.NewUserRepository(db)
	e := server.New(server.Deps{
		Config:   cfg,
		Users:    users,
		Contacts: gormrepo.NewContactRepository(db),
		Hasher:   &auth.BcryptHasher{Cost: bcrypt.MinCost},
		Avatars:  store,
	})
	return &testApp{t: t, e: e, users: users}
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *strings.Reader
	switch b := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) signupAndLogin(email string) string {
	a.t.Helper()
	creds := map[string]string{"email": email, "password": "secret1"}
	rec := a.do(http.MethodPost, "/users/signup", "", creds)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/users/login", "", creds)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(a.t, out.Token)
	return out.Token
}

func (a *testApp) createContact(token, name string, favorite bool) map[string]any {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/contacts", token, map[string]any{
		"name": name, "email": strings.ToLower(name) + "@mail.com", "phone": validPhone, "favorite": favorite,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeMap(a.t, rec)
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, message, decodeMap(t, rec)["message"])
}

func TestSignup(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/users/signup", "", map[string]string{"email": "a@mail.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decodeMap(t, rec)["user"].(map[string]any)
	assert.Equal(t, "a@mail.com", user["email"])
	assert.Equal(t, "starter", user["subscription"])
	assert.Equal(t, avatar.GravatarURL("a@mail.com"), user["avatarURL"])
	assert.NotContains(t, rec.Body.String(), "secret1")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = app.do(http.MethodPost, "/users/signup", "", map[string]string{"email": "a@mail.com", "password": "other12"})
	assertMessage(t, rec, http.StatusConflict, "Email in use")

	rec = app.do(http.MethodPost, "/users/signup", "", map[string]string{"email": "nope", "password": "secret1"})
	assertMessage(t, rec, http.StatusBadRequest, `"email" must be a valid email`)

	rec = app.do(http.MethodPost, "/users/signup", "", map[string]string{"email": "b@mail.com"})
	assertMessage(t, rec, http.StatusBadRequest, `"password" is required`)

	stored, err := app.users.FindByEmail(t.Context(), "a@mail.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	app.signupAndLogin("a@mail.com")

	rec := app.do(http.MethodPost, "/users/login", "", map[string]string{"email": "a@mail.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, map[string]any{"email": "a@mail.com", "subscription": "starter"}, body["user"])

	wrongPassword := app.do(http.MethodPost, "/users/login", "", map[string]string{"email": "a@mail.com", "password": "badpass"})
	unknownEmail := app.do(http.MethodPost, "/users/login", "", map[string]string{"email": "x@mail.com", "password": "secret1"})
	assertMessage(t, wrongPassword, http.StatusUnauthorized, "Email or password is wrong")
	assertMessage(t, unknownEmail, http.StatusUnauthorized, "Email or password is wrong")
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestAuthentication(t *testing.T) {
	app := newTestApp(t)
	first := app.signupAndLogin("a@mail.com")

	t.Run("missing or malformed header", func(t *testing.T) {
		assertMessage(t, app.do(http.MethodGet, "/contacts", "", nil), http.StatusUnauthorized, "Not authorized")

		req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
		req.Header.Set(echo.HeaderAuthorization, "Token "+first)
		rec := httptest.NewRecorder()
		app.e.ServeHTTP(rec, req)
		assertMessage(t, rec, http.StatusUnauthorized, "Not authorized")

		assertMessage(t, app.do(http.MethodGet, "/users/current", "garbage", nil), http.StatusUnauthorized, "Not authorized")
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		forged, err := auth.NewTokenManager("other-secret", time.Hour).Generate("1")
		require.NoError(t, err)
		assertMessage(t, app.do(http.MethodGet, "/users/current", forged, nil), http.StatusUnauthorized, "Not authorized")
	})

	t.Run("relogin makes the earlier token stale", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/users/login", "", map[string]string{"email": "a@mail.com", "password": "secret1"})
		require.Equal(t, http.StatusOK, rec.Code)
		second := decodeMap(t, rec)["token"].(string)

		assertMessage(t, app.do(http.MethodGet, "/users/current", first, nil), http.StatusUnauthorized, "Not authorized")
		assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/users/current", second, nil).Code)

		rec = app.do(http.MethodGet, "/users/logout", second, nil)
		assertMessage(t, rec, http.StatusOK, "Logout successful")
		assertMessage(t, app.do(http.MethodGet, "/users/current", second, nil), http.StatusUnauthorized, "Not authorized")
	})
}

func TestCurrentAndSubscription(t *testing.T) {
	app := newTestApp(t)
	token := app.signupAndLogin("a@mail.com")

	rec := app.do(http.MethodGet, "/users/current", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decodeMap(t, rec)
	assert.Equal(t, "a@mail.com", current["email"])
	assert.Equal(t, "starter", current["subscription"])
	assert.NotEmpty(t, current["avatarURL"])

	rec = app.do(http.MethodPatch, "/users", token, map[string]string{"subscription": "business"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"email": "a@mail.com", "subscription": "business"}, decodeMap(t, rec))

	rec = app.do(http.MethodPatch, "/users", token, map[string]string{"subscription": "gold"})
	assertMessage(t, rec, http.StatusBadRequest, `"subscription" must be one of [starter, pro, business]`)
}

func TestContactsCRUD(t *testing.T) {
	app := newTestApp(t)
	token := app.signupAndLogin("a@mail.com")

	created := app.createContact(token, "Alice", false)
	id := created["id"].(string)
	assert.Equal(t, "Alice", created["name"])
	assert.Equal(t, false, created["favorite"])
	assert.NotEmpty(t, created["owner"])

	rec := app.do(http.MethodGet, "/contacts/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@mail.com", decodeMap(t, rec)["email"])

	rec = app.do(http.MethodPut, "/contacts/"+id, token, map[string]any{"name": "Alicia", "email": "alicia@mail.com", "phone": "(555) 555-5555"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alicia", decodeMap(t, rec)["name"])

	rec = app.do(http.MethodPut, "/contacts/"+id, token, map[string]any{"name": "Alicia"})
	assertMessage(t, rec, http.StatusBadRequest, `"email" is required`)

	rec = app.do(http.MethodPatch, "/contacts/"+id, token, map[string]any{"phone": "(999) 999-9999"})
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decodeMap(t, rec)
	assert.Equal(t, "(999) 999-9999", patched["phone"])
	assert.Equal(t, "Alicia", patched["name"], "absent fields keep their value")

	rec = app.do(http.MethodPatch, "/contacts/"+id, token, "{}")
	assertMessage(t, rec, http.StatusBadRequest, `"value" must have at least 1 key`)

	rec = app.do(http.MethodPatch, "/contacts/"+id+"/favorite", token, map[string]any{})
	assertMessage(t, rec, http.StatusBadRequest, "missing field favorite")

	rec = app.do(http.MethodPatch, "/contacts/"+id+"/favorite", token, map[string]any{"favorite": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["favorite"])

	rec = app.do(http.MethodPost, "/contacts", token, map[string]any{"name": "Bob", "email": "bob@mail.com", "phone": "123-456-7890"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["message"], "fails to match the required pattern")

	rec = app.do(http.MethodDelete, "/contacts/"+id, token, nil)
	assertMessage(t, rec, http.StatusOK, "Contact deleted")
	assertMessage(t, app.do(http.MethodGet, "/contacts/"+id, token, nil), http.StatusNotFound, "Not found")
	assertMessage(t, app.do(http.MethodDelete, "/contacts/"+id, token, nil), http.StatusNotFound, "Not found")
	assertMessage(t, app.do(http.MethodGet, "/contacts/not-an-id", token, nil), http.StatusNotFound, "Not found")
}

func TestContactsFavoriteDefaults(t *testing.T) {
	app := newTestApp(t)
	token := app.signupAndLogin("a@mail.com")

	rec := app.do(http.MethodPost, "/contacts", token, map[string]any{"name": "Carol", "email": "carol@mail.com", "phone": validPhone})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeMap(t, rec)["id"].(string)

	rec = app.do(http.MethodGet, "/contacts/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["favorite"])

	rec = app.do(http.MethodPatch, "/contacts/"+id+"/favorite", token, map[string]any{"favorite": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["favorite"])

	// A full replace without favorite resets it.
	rec = app.do(http.MethodPut, "/contacts/"+id, token, map[string]any{"name": "Caroline", "email": "caroline@mail.com", "phone": validPhone})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, "/contacts/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeMap(t, rec)
	assert.Equal(t, "Caroline", got["name"])
	assert.Equal(t, false, got["favorite"])
}

func TestContactsRejectMiscasedKeys(t *testing.T) {
	app := newTestApp(t)
	token := app.signupAndLogin("a@mail.com")
	id := app.createContact(token, "Dave", false)["id"].(string)

	rec := app.do(http.MethodPatch, "/contacts/"+id, token, `{"NAME":"Zed"}`)
	assertMessage(t, rec, http.StatusBadRequest, `"NAME" is not allowed`)

	rec = app.do(http.MethodGet, "/contacts/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dave", decodeMap(t, rec)["name"])
}

func TestContactsOwnership(t *testing.T) {
	app := newTestApp(t)
	alice := app.signupAndLogin("alice@mail.com")
	bob := app.signupAndLogin("bob@mail.com")

	id := app.createContact(alice, "Carol", false)["id"].(string)

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/contacts/" + id, nil},
		{http.MethodPut, "/contacts/" + id, map[string]any{"name": "Mallory", "email": "m@mail.com", "phone": validPhone}},
		{http.MethodPatch, "/contacts/" + id, map[string]any{"name": "Mallory"}},
		{http.MethodPatch, "/contacts/" + id + "/favorite", map[string]any{"favorite": true}},
		{http.MethodDelete, "/contacts/" + id, nil},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			assertMessage(t, app.do(tc.method, tc.path, bob, tc.body), http.StatusNotFound, "Not found")
		})
	}

	rec := app.do(http.MethodGet, "/contacts", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeList(t, rec))

	rec = app.do(http.MethodGet, "/contacts/"+id, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Carol", decodeMap(t, rec)["name"])
}

func TestContactsListing(t *testing.T) {
	app := newTestApp(t)
	token := app.signupAndLogin("a@mail.com")
	for i := 1; i <= 5; i++ {
		app.createContact(token, fmt.Sprintf("Contact%d", i), i%2 == 1)
	}

	rec := app.do(http.MethodGet, "/contacts?page=2&limit=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeList(t, rec)
	require.Len(t, page, 2)
	assert.Equal(t, "Contact3", page[0]["name"])
	assert.Equal(t, "Contact4", page[1]["name"])

	rec = app.do(http.MethodGet, "/contacts?favorite=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	favorites := decodeList(t, rec)
	require.Len(t, favorites, 3)
	for _, c := range favorites {
		assert.Equal(t, true, c["favorite"])
	}

	rec = app.do(http.MethodGet, "/contacts?favorite=false", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 2)

	rec = app.do(http.MethodGet, "/contacts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 5)

	for _, query := range []string{"page=100&limit=2", "page=4611686018427387904&limit=2"} {
		t.Run(query, func(t *testing.T) {
			rec := app.do(http.MethodGet, "/contacts?"+query, token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Empty(t, decodeList(t, rec))
		})
	}

	for _, query := range []string{
		"page=0", "limit=abc", "limit=101", "favorite=yes",
		"page=9223372036854775807&limit=2", "page=4611686018427387905&limit=4",
	} {
		t.Run(query, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/contacts?"+query, token, nil).Code)
		})
	}
}

func TestDeleteUser_CascadesContacts(t *testing.T) {
	app := newTestApp(t)
	alice := app.signupAndLogin("alice@mail.com")
	bob := app.signupAndLogin("bob@mail.com")
	app.createContact(alice, "One", false)
	app.createContact(alice, "Two", false)
	app.createContact(bob, "Three", false)

	rec := app.do(http.MethodDelete, "/users", alice, nil)
	assertMessage(t, rec, http.StatusOK, "User deleted successfully")

	assertMessage(t, app.do(http.MethodGet, "/users/current", alice, nil), http.StatusUnauthorized, "Not authorized")

	rec = app.do(http.MethodGet, "/contacts", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	// the email is free again
	rec = app.do(http.MethodPost, "/users/signup", "", map[string]string{"email": "alice@mail.com", "password": "secret1"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAvatarUpload(t *testing.T) {
	app := newTestApp(t)
	token := app.signupAndLogin("a@mail.com")

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 80, 40))))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPatch, "/users/avatars", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	url := decodeMap(t, rec)["avatarURL"].(string)
	assert.True(t, strings.HasPrefix(url, "/avatars/"))

	served := httptest.NewRecorder()
	app.e.ServeHTTP(served, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, served.Code)

	rec = app.do(http.MethodGet, "/users/current", token, nil)
	assert.Equal(t, url, decodeMap(t, rec)["avatarURL"])

	rec = app.do(http.MethodPatch, "/users/avatars", token, nil)
	assertMessage(t, rec, http.StatusBadRequest, `"avatar" is required`)
}

func TestEmailVerification(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.Auth.RequireVerifiedEmail = true })
	creds := map[string]string{"email": "a@mail.com", "password": "secret1"}
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/users/signup", "", creds).Code)

	assertMessage(t, app.do(http.MethodPost, "/users/login", "", creds), http.StatusForbidden, "Email not verified")

	assertMessage(t, app.do(http.MethodPost, "/users/verify", "", map[string]string{}), http.StatusBadRequest, "missing required field email")
	assertMessage(t, app.do(http.MethodPost, "/users/verify", "", map[string]string{"email": "x@mail.com"}), http.StatusNotFound, "User not found")
	assertMessage(t, app.do(http.MethodPost, "/users/verify", "", map[string]string{"email": "a@mail.com"}), http.StatusOK, "Verification email sent")

	assertMessage(t, app.do(http.MethodGet, "/users/verify/unknown", "", nil), http.StatusNotFound, "User not found")

	stored, err := app.users.FindByEmail(t.Context(), "a@mail.com")
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationToken)

	assertMessage(t, app.do(http.MethodGet, "/users/verify/"+*stored.VerificationToken, "", nil), http.StatusOK, "Verification successful")
	assertMessage(t, app.do(http.MethodPost, "/users/verify", "", map[string]string{"email": "a@mail.com"}), http.StatusBadRequest, "Verification has already been passed")

	assert.Equal(t, http.StatusOK, app.do(http.MethodPost, "/users/login", "", creds).Code)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/health?check=db", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeMap(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	assertMessage(t, app.do(http.MethodGet, "/nope", "", nil), http.StatusNotFound, "Not Found")

	rec = app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contacts_http_requests_total")
}
