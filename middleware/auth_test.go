package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remip/giftmanager/session"
	"github.com/remip/giftmanager/user"
)

type testSessionRepo struct {
	sessions map[string]*session.Session
}

func (r *testSessionRepo) Create(ctx context.Context, userID uuid.UUID) (*session.Session, error) {
	sess := &session.Session{ID: uuid.New(), UserID: userID, Token: uuid.NewString(), ExpiresAt: time.Now().Add(time.Hour)}
	r.sessions[sess.Token] = sess
	return sess, nil
}

func (r *testSessionRepo) GetByToken(ctx context.Context, token string) (*session.Session, error) {
	sess, ok := r.sessions[token]
	if !ok {
		return nil, session.ErrInvalidSession
	}
	return sess, nil
}

func (r *testSessionRepo) Delete(ctx context.Context, token string) error {
	delete(r.sessions, token)
	return nil
}

func (r *testSessionRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	for token, sess := range r.sessions {
		if sess.UserID == userID {
			delete(r.sessions, token)
		}
	}
	return nil
}

type testUserRepo struct {
	users map[uuid.UUID]*user.User
}

func (r *testUserRepo) Register(ctx context.Context, username, password string) (*user.User, error) {
	u := &user.User{ID: uuid.New(), Username: username}
	r.users[u.ID] = u
	return u, nil
}

func (r *testUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *testUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.users[id], nil
}

func (r *testUserRepo) List(ctx context.Context) ([]user.User, error) { return nil, nil }

func (r *testUserRepo) VerifyPassword(hashedPassword, password string) error { return nil }

func (r *testUserRepo) UpdateCredentials(ctx context.Context, id uuid.UUID, newUsername, newPassword string) error {
	return nil
}

func (r *testUserRepo) EnsureAdmin(ctx context.Context) error { return nil }

func newTestRepos() (*testSessionRepo, *testUserRepo) {
	return &testSessionRepo{sessions: make(map[string]*session.Session)},
		&testUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func TestAuthResolvesSessionCookie(t *testing.T) {
	sessions, users := newTestRepos()
	u, _ := users.Register(context.Background(), "alice", "secret")
	sess, _ := sessions.Create(context.Background(), u.ID)

	var got *user.User
	handler := Auth(sessions, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.Token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
}

func TestAuthClearsBadCookie(t *testing.T) {
	sessions, users := newTestRepos()

	handler := Auth(sessions, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := CurrentUser(r.Context())
		assert.False(t, ok)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "bogus"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &user.User{Username: "alice"}))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &user.User{Username: "bob"}))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &user.User{Username: "root", IsAdmin: true}))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
