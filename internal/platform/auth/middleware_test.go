package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func invoke(mw echo.MiddlewareFunc, req *http.Request) (Actor, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var actor Actor
	err := mw(func(c echo.Context) error {
		actor = ActorFromContext(c.Request().Context())
		return nil
	})(c)
	return actor, err
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tokenStr := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "claims-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Sarah Johnson",
		Roles: []string{"hospital"},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)

	actor, err := invoke(JWTMiddleware(JWTConfig{Issuer: "claims-test", SigningKey: testKey}), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "user-1" || actor.Name != "Sarah Johnson" {
		t.Errorf("unexpected actor: %+v", actor)
	}
	if !actor.HasRole("hospital") {
		t.Error("expected hospital role")
	}
	if actor.HasRole("insurance") {
		t.Error("did not expect insurance role")
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := invoke(JWTMiddleware(JWTConfig{SigningKey: testKey}), req)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	tokenStr := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)

	_, err := invoke(JWTMiddleware(JWTConfig{SigningKey: testKey}), req)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %v", err)
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	tokenStr := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)

	_, err := invoke(JWTMiddleware(JWTConfig{Issuer: "claims-test", SigningKey: testKey}), req)
	if err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	actor, err := invoke(DevAuthMiddleware(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "dev-user" {
		t.Errorf("expected dev-user actor, got %q", actor.ID)
	}
	if !actor.HasRole("insurance") || !actor.HasRole("hospital") {
		t.Error("admin actor should satisfy any role check")
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(actor Actor, roles ...string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		return RequireRole(roles...)(func(c echo.Context) error { return nil })(c)
	}

	if err := run(Actor{ID: "u1", Roles: []string{"insurance"}}, "insurance"); err != nil {
		t.Errorf("insurance actor should pass insurance check: %v", err)
	}
	if err := run(Actor{ID: "u2", Roles: []string{"hospital"}}, "hospital", "insurance"); err != nil {
		t.Errorf("hospital actor should pass multi-role check: %v", err)
	}

	err := run(Actor{ID: "u3", Roles: []string{"hospital"}}, "insurance")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
