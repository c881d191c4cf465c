package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "unit-test-secret"

func testModeAuth(t *testing.T) *Auth {
	t.Helper()
	t.Setenv(envAuthTestMode, "1")
	t.Setenv(envTestJWTSecret, testSecret)
	return NewAuth(nil, "")
}

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestValidateIDTokenTestMode(t *testing.T) {
	auth := testModeAuth(t)

	token := signedTestToken(t, jwt.MapClaims{
		"email": "a@example.com",
		"name":  "A",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	identity, err := auth.ValidateIDToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity.Email != "a@example.com" || identity.Name != "A" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestValidateIDTokenRejections(t *testing.T) {
	auth := testModeAuth(t)

	cases := map[string]jwt.MapClaims{
		"expired": {
			"email": "a@example.com",
			"exp":   time.Now().Add(-2 * time.Hour).Unix(),
		},
		"missingExpiry": {
			"email": "a@example.com",
		},
		"missingEmail": {
			"exp": time.Now().Add(time.Hour).Unix(),
		},
		"notYetValid": {
			"email": "a@example.com",
			"exp":   time.Now().Add(2 * time.Hour).Unix(),
			"nbf":   time.Now().Add(time.Hour).Unix(),
		},
	}
	for name, claims := range cases {
		if _, err := auth.ValidateIDToken(signedTestToken(t, claims)); err == nil {
			t.Errorf("%s: token accepted", name)
		}
	}

	if _, err := auth.ValidateIDToken(""); err == nil {
		t.Error("empty token accepted")
	}
	if _, err := auth.ValidateIDToken("not.a.jwt"); err == nil {
		t.Error("garbage token accepted")
	}

	// Signed under a different secret.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "a@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ValidateIDToken(forged); err == nil {
		t.Error("forged signature accepted")
	}
}

func TestValidateIDTokenAudience(t *testing.T) {
	t.Setenv(envAuthTestMode, "1")
	t.Setenv(envTestJWTSecret, testSecret)
	auth := NewAuth(nil, "my-client-id")

	claims := jwt.MapClaims{
		"email": "a@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"aud":   "someone-else",
	}
	if _, err := auth.ValidateIDToken(signedTestToken(t, claims)); err == nil {
		t.Error("wrong audience accepted")
	}

	claims["aud"] = "my-client-id"
	if _, err := auth.ValidateIDToken(signedTestToken(t, claims)); err != nil {
		t.Errorf("matching audience rejected: %v", err)
	}
}

func TestGoogleLoginCreatesUserAndSession(t *testing.T) {
	d, store, _, _ := testDeps(t)
	d.Auth = testModeAuth(t)

	token := signedTestToken(t, jwt.MapClaims{
		"email": "new@example.com",
		"name":  "Newcomer",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	c, rec := formContext(t, http.MethodPost, "/api/auth/google_login", url.Values{"token": {token}})
	if err := googleLogin(d)(c); err != nil {
		t.Fatalf("googleLogin: %v", err)
	}
	body := decodeBody(t, rec)
	wantSuccess(t, body, true)
	if body["message"] != "Signed in" {
		t.Errorf("message = %v", body["message"])
	}

	u, _ := store.GetUserByEmail(context.Background(), "new@example.com")
	if u == nil || u.Name != "Newcomer" {
		t.Fatalf("user = %+v", u)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %+v", cookies)
	}
	id, ok, _ := d.Sessions.UserID(context.Background(), cookies[0].Value)
	if !ok || id != u.ID {
		t.Errorf("session resolves to %d, %v", id, ok)
	}

	// Signing in again reuses the account.
	c, rec = formContext(t, http.MethodPost, "/api/auth/google_login", url.Values{"token": {token}})
	_ = googleLogin(d)(c)
	wantSuccess(t, decodeBody(t, rec), true)
	users, _ := store.ListUsers(context.Background(), 0, 0)
	if len(users) != 1 {
		t.Errorf("duplicate users created: %d", len(users))
	}
}

func TestGoogleLoginRejectsBadToken(t *testing.T) {
	d, _, _, _ := testDeps(t)
	d.Auth = testModeAuth(t)

	c, rec := formContext(t, http.MethodPost, "/api/auth/google_login", url.Values{"token": {"bogus"}})
	if err := googleLogin(d)(c); err != nil {
		t.Fatalf("googleLogin: %v", err)
	}
	body := decodeBody(t, rec)
	wantSuccess(t, body, false)
	if body["message"] != "Failed to validate" {
		t.Errorf("message = %v", body["message"])
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("session cookie set on failed login")
	}
}

func TestGoogleAuthAccountLinking(t *testing.T) {
	d, store, _, _ := testDeps(t)
	d.Auth = testModeAuth(t)
	d.GoogleProjectName = "flow-project"
	codec, err := NewTokenCodec([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	d.Tokens = codec

	u := testUser(t, store)
	seed, _ := formContext(t, http.MethodPost, "/login", nil)
	token, _ := d.Sessions.Create(context.Background(), seed, u.ID)

	expected := "https://oauth-redirect.googleusercontent.com/r/flow-project"
	form := url.Values{
		"client_id":    {"google"},
		"redirect_uri": {expected},
		"state":        {"xyzzy"},
	}
	c, rec := formContext(t, http.MethodPost, "/api/auth/google_auth", form)
	c.Request().AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	if err := googleAuth(d)(c); err != nil {
		t.Fatalf("googleAuth: %v", err)
	}
	body := decodeBody(t, rec)
	wantSuccess(t, body, true)

	redirect, _ := body["redirect"].(string)
	if !strings.HasPrefix(redirect, expected+"#") {
		t.Fatalf("redirect = %q", redirect)
	}
	frag, err := url.ParseQuery(strings.TrimPrefix(redirect, expected+"#"))
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	if frag.Get("token_type") != "bearer" || frag.Get("state") != "xyzzy" {
		t.Errorf("fragment = %v", frag)
	}
	userID, clientID, err := codec.Decode(frag.Get("access_token"))
	if err != nil || userID != u.ID || clientID != "google" {
		t.Errorf("access token decodes to %d, %q, %v", userID, clientID, err)
	}
}

func TestGoogleAuthRejectsWrongRedirect(t *testing.T) {
	d, store, _, _ := testDeps(t)
	d.Auth = testModeAuth(t)
	d.GoogleProjectName = "flow-project"

	u := testUser(t, store)
	seed, _ := formContext(t, http.MethodPost, "/login", nil)
	token, _ := d.Sessions.Create(context.Background(), seed, u.ID)

	c, rec := formContext(t, http.MethodPost, "/api/auth/google_auth", url.Values{
		"client_id":    {"google"},
		"redirect_uri": {"https://evil.example.com/steal"},
	})
	c.Request().AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	_ = googleAuth(d)(c)
	body := decodeBody(t, rec)
	wantSuccess(t, body, false)
	if body["message"] != "Unexpected redirect URI" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestFbookAuth(t *testing.T) {
	d, store, _, _ := testDeps(t)
	d.Auth = testModeAuth(t)
	u := testUser(t, store)
	seed, _ := formContext(t, http.MethodPost, "/login", nil)
	token, _ := d.Sessions.Create(context.Background(), seed, u.ID)

	c, rec := formContext(t, http.MethodPost, "/api/auth/fbook_auth", url.Values{
		"redirect_uri": {"https://facebook.com/authorize?x=1"},
	})
	c.Request().AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	if err := fbookAuth(d)(c); err != nil {
		t.Fatalf("fbookAuth: %v", err)
	}
	body := decodeBody(t, rec)
	wantSuccess(t, body, true)
	want := "https://facebook.com/authorize?x=1&authorization_code=" + int64Str(u.ID)
	if body["redirect"] != want {
		t.Errorf("redirect = %v, want %v", body["redirect"], want)
	}

	// Missing redirect URI.
	c, rec = formContext(t, http.MethodPost, "/api/auth/fbook_auth", nil)
	c.Request().AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	_ = fbookAuth(d)(c)
	body = decodeBody(t, rec)
	wantSuccess(t, body, false)
	if body["message"] != "No redirect URI?" {
		t.Errorf("message = %v", body["message"])
	}

	// Anonymous.
	c, rec = formContext(t, http.MethodPost, "/api/auth/fbook_auth", url.Values{
		"redirect_uri": {"https://facebook.com/authorize"},
	})
	_ = fbookAuth(d)(c)
	body = decodeBody(t, rec)
	wantSuccess(t, body, false)
	if body["message"] != "User not found" {
		t.Errorf("message = %v", body["message"])
	}
}
