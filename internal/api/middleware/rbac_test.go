package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/policy"
)

func runPermit(caller *policy.Caller, kind policy.Kind, action policy.Action) (bool, error) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	if caller != nil {
		SetCaller(c, *caller)
	}

	called := false
	handler := Permit(kind, action)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	return called, handler(c)
}

func TestPermit_AdminWritesCatalog(t *testing.T) {
	admin := policy.Caller{ID: 1, Username: "root", Role: domain.RoleAdmin}
	called, err := runPermit(&admin, policy.KindTitle, policy.ActionCreate)
	if err != nil || !called {
		t.Fatalf("admin should create titles, called=%v err=%v", called, err)
	}
}

func TestPermit_AnonymousReadsCatalog(t *testing.T) {
	called, err := runPermit(nil, policy.KindGenre, policy.ActionList)
	if err != nil || !called {
		t.Fatalf("anonymous should list genres, called=%v err=%v", called, err)
	}
}

func TestPermit_AnonymousWriteNeedsAuthentication(t *testing.T) {
	called, err := runPermit(nil, policy.KindCategory, policy.ActionCreate)
	if called {
		t.Fatal("next must not run")
	}
	if !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestPermit_ModeratorCannotManageUsers(t *testing.T) {
	mod := policy.Caller{ID: 2, Username: "mod", Role: domain.RoleModerator}
	called, err := runPermit(&mod, policy.KindUser, policy.ActionList)
	if called {
		t.Fatal("next must not run")
	}
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestPermit_SelfAllowsReadAndPatchOnly(t *testing.T) {
	user := policy.Caller{ID: 3, Username: "carol", Role: domain.RoleUser}
	if _, err := runPermit(&user, policy.KindSelf, policy.ActionPartialUpdate); err != nil {
		t.Fatalf("patch on self should pass: %v", err)
	}
	if _, err := runPermit(&user, policy.KindSelf, policy.ActionDelete); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("delete on self should be denied, got %v", err)
	}
}
