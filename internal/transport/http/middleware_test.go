package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/smlier739/copytrip-backend-sub000/internal/util"
)

func TestRequireAuth_StoresOnlyTheViewer(t *testing.T) {
	tokens := util.NewJWTManager("test-secret", time.Hour)
	userID := uuid.New()
	token, _, err := tokens.Generate(userID, false, true)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := RequireAuth(tokens)(func(c echo.Context) error {
		called = true
		viewer, ok := CurrentViewer(c)
		if !ok {
			t.Fatalf("expected viewer in context")
		}
		if viewer.UserID != userID || !viewer.Entitlements.IsPremium || viewer.Entitlements.IsAdmin {
			t.Fatalf("unexpected viewer %+v", viewer)
		}
		if raw := c.Get("token"); raw != nil {
			t.Fatalf("expected raw token to stay out of the context, got %v", raw)
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected handler to run, code=%d", rec.Code)
	}
}

func TestRequireAuth_RejectsMalformedHeader(t *testing.T) {
	tokens := util.NewJWTManager("test-secret", time.Hour)
	e := echo.New()
	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		handler := RequireAuth(tokens)(func(c echo.Context) error {
			t.Fatalf("handler must not run for %q", header)
			return nil
		})
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}
