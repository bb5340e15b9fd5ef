package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sessionCookie(t *testing.T, userID uint) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	CreateSession(rr, userID)
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() { SetSecret("") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, 42))
	uid, ok := ParseSession(req)
	if !ok || uid != 42 {
		t.Fatalf("ParseSession = %d, %v", uid, ok)
	}
}

func TestParseSessionRejectsTampering(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() { SetSecret("") })
	c := sessionCookie(t, 7)

	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"old two-part format", "7.abc"},
		{"user swapped", "8" + c.Value[1:]},
		{"garbage", "x.y.z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.value})
			if _, ok := ParseSession(req); ok {
				t.Error("expected session to be rejected")
			}
		})
	}

	SetSecret("rotated")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if _, ok := ParseSession(req); ok {
		t.Error("cookie signed with the old secret must be rejected")
	}
}

func TestParseSessionExpiry(t *testing.T) {
	SetSecret("test-secret")
	c := sessionCookie(t, 3)
	now = func() time.Time { return time.Now().Add(SessionTTL + time.Minute) }
	t.Cleanup(func() {
		now = time.Now
		SetSecret("")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if _, ok := ParseSession(req); ok {
		t.Error("expired session accepted")
	}
}

func TestRequireAuth(t *testing.T) {
	SetSecret("test-secret")
	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid == 1 })
	t.Cleanup(func() {
		SetSecret("")
		SetUserVerifier(nil)
	})
	h := Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		if uid != 1 {
			t.Errorf("uid = %d", uid)
		}
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name string
		user uint
		want int
	}{
		{"anonymous", 0, http.StatusUnauthorized},
		{"verified user", 1, http.StatusNoContent},
		{"vanished user", 2, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != 0 {
				req.AddCookie(sessionCookie(t, tt.user))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
