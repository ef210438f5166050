package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

type stubAuthService struct {
	signupFn func(ctx context.Context, username, email string) (*ports.SignupResult, error)
	tokenFn  func(ctx context.Context, username, code string) (string, error)
}

func (s *stubAuthService) Signup(ctx context.Context, username, email string) (*ports.SignupResult, error) {
	return s.signupFn(ctx, username, email)
}

func (s *stubAuthService) GetToken(ctx context.Context, username, code string) (string, error) {
	return s.tokenFn(ctx, username, code)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *domain.ValidationError, got %T: %v", err, err)
	}
	return ve.Fields
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signupFn: func(_ context.Context, username, email string) (*ports.SignupResult, error) {
			if username != "alice" || email != "alice@example.com" {
				t.Fatalf("unexpected args: %s %s", username, email)
			}
			return &ports.SignupResult{Username: username, Email: email, Created: true}, nil
		},
	}
	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/signup/", `{"username":"alice","email":"alice@example.com"}`)

	if err := NewAuthHandler(stub).Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["username"] != "alice" || resp["email"] != "alice@example.com" || len(resp) != 2 {
		t.Fatalf("unexpected body: %v", resp)
	}
}

func TestAuthHandler_Signup_RequiresBothFields(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signupFn: func(context.Context, string, string) (*ports.SignupResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	c, _ := jsonContext(e, http.MethodPost, "/api/v1/auth/signup/", `{}`)

	fields := validationFields(t, NewAuthHandler(stub).Signup(c))
	if fields["username"] != "this field is required" || fields["email"] != "this field is required" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

// Format rules belong to the new-registration branch of the service, so an
// existing pair that predates them can still ask for a fresh code.
func TestAuthHandler_Signup_LeavesFormatChecksToService(t *testing.T) {
	e := newTestEcho()
	var gotUsername, gotEmail string
	stub := &stubAuthService{
		signupFn: func(_ context.Context, username, email string) (*ports.SignupResult, error) {
			gotUsername, gotEmail = username, email
			return &ports.SignupResult{Username: username, Email: email}, nil
		},
	}
	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/signup/",
		`{"username":"legacy.user.name.toolong","email":"legacy@x.com"}`)

	if err := NewAuthHandler(stub).Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUsername != "legacy.user.name.toolong" || gotEmail != "legacy@x.com" {
		t.Fatalf("service got %q %q", gotUsername, gotEmail)
	}
}

func TestAuthHandler_Signup_PropagatesServiceErrors(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		signupFn: func(context.Context, string, string) (*ports.SignupResult, error) {
			return nil, domain.ErrSignupThrottled
		},
	}
	c, _ := jsonContext(e, http.MethodPost, "/api/v1/auth/signup/", `{"username":"alice","email":"alice@example.com"}`)

	if err := NewAuthHandler(stub).Signup(c); !errors.Is(err, domain.ErrSignupThrottled) {
		t.Fatalf("expected ErrSignupThrottled, got %v", err)
	}
}

func TestAuthHandler_Token_Created(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		tokenFn: func(_ context.Context, username, code string) (string, error) {
			if username != "alice" || code != "abc-123" {
				t.Fatalf("unexpected args: %s %s", username, code)
			}
			return "jwt-token", nil
		},
	}
	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/token/", `{"username":"alice","confirmation_code":"abc-123"}`)

	if err := NewAuthHandler(stub).Token(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"token":"jwt-token"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthHandler_Token_MissingFields(t *testing.T) {
	e := newTestEcho()
	c, _ := jsonContext(e, http.MethodPost, "/api/v1/auth/token/", `{}`)

	fields := validationFields(t, NewAuthHandler(&stubAuthService{}).Token(c))
	if fields["username"] != "this field is required" || fields["confirmation_code"] != "this field is required" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestAuthHandler_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	c, _ := jsonContext(e, http.MethodPost, "/api/v1/auth/token/", `{"username":`)

	err := NewAuthHandler(&stubAuthService{}).Token(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}
