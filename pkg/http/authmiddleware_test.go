package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/txn2/dremio-simplejson/pkg/audit"
)

const (
	testUser     = "grafana"
	testPassword = "s3cret"
	testIssuer   = "https://issuer.example"
	testAudience = "dremio-simplejson"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	return string(hash)
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   "dashboard-svc",
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

// capture returns a handler that records the authenticated user.
func capture(user *string, called *bool) http.Handler {
	return http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		*called = true
		*user = audit.GetRequestInfo(r.Context()).UserID
	})
}

func TestAuthMiddleware_NoneConfigured(t *testing.T) {
	if mw := AuthMiddleware(AuthConfig{}); mw != nil {
		t.Error("expected nil middleware when no method is configured")
	}
}

func TestAuthMiddleware_Basic(t *testing.T) {
	mw := AuthMiddleware(AuthConfig{BasicUsername: testUser, BasicPasswordHash: hashPassword(t, testPassword)})
	if mw == nil {
		t.Fatal("expected middleware")
	}

	tests := []struct {
		name     string
		setup    func(*http.Request)
		wantCode int
		wantUser string
	}{
		{"valid credentials", func(r *http.Request) { r.SetBasicAuth(testUser, testPassword) }, http.StatusOK, testUser},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth(testUser, "nope") }, http.StatusUnauthorized, ""},
		{"wrong user", func(r *http.Request) { r.SetBasicAuth("admin", testPassword) }, http.StatusUnauthorized, ""},
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bearer not accepted", func(r *http.Request) { r.Header.Set("Authorization", "Bearer x") }, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var user string
			var called bool
			req := httptest.NewRequest(http.MethodPost, "/query", http.NoBody)
			tt.setup(req)
			rr := httptest.NewRecorder()

			mw(capture(&user, &called)).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if user != tt.wantUser {
				t.Errorf("user = %q, want %q", user, tt.wantUser)
			}
			if tt.wantCode == http.StatusUnauthorized {
				if called {
					t.Error("next handler should not be called")
				}
				if got := rr.Header().Get("WWW-Authenticate"); got != `Basic realm="dremio-simplejson"` {
					t.Errorf("WWW-Authenticate = %q", got)
				}
			}
		})
	}
}

func TestAuthMiddleware_Bearer(t *testing.T) {
	mw := AuthMiddleware(AuthConfig{BearerSecret: testSecret, BearerIssuer: testIssuer, BearerAudience: testAudience})

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://other.example"
	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"other"}
	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantUser string
	}{
		{"valid token", signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()), http.StatusOK, "dashboard-svc"},
		{"wrong secret", signToken(t, jwt.SigningMethodHS256, []byte("other-secret"), validClaims()), http.StatusUnauthorized, ""},
		{"wrong algorithm", signToken(t, jwt.SigningMethodHS512, testSecret, validClaims()), http.StatusUnauthorized, ""},
		{"expired", signToken(t, jwt.SigningMethodHS256, testSecret, expired), http.StatusUnauthorized, ""},
		{"wrong issuer", signToken(t, jwt.SigningMethodHS256, testSecret, wrongIssuer), http.StatusUnauthorized, ""},
		{"wrong audience", signToken(t, jwt.SigningMethodHS256, testSecret, wrongAudience), http.StatusUnauthorized, ""},
		{"missing subject", signToken(t, jwt.SigningMethodHS256, testSecret, noSubject), http.StatusUnauthorized, ""},
		{"garbage", "not-a-jwt", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var user string
			var called bool
			req := httptest.NewRequest(http.MethodPost, "/query", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rr := httptest.NewRecorder()

			mw(capture(&user, &called)).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if user != tt.wantUser {
				t.Errorf("user = %q, want %q", user, tt.wantUser)
			}
		})
	}
}

func TestAuthMiddleware_EitherMethod(t *testing.T) {
	mw := AuthMiddleware(AuthConfig{
		BasicUsername:     testUser,
		BasicPasswordHash: hashPassword(t, testPassword),
		BearerSecret:      testSecret,
	})

	t.Run("basic accepted", func(t *testing.T) {
		var user string
		var called bool
		req := httptest.NewRequest(http.MethodPost, "/search", http.NoBody)
		req.SetBasicAuth(testUser, testPassword)
		rr := httptest.NewRecorder()
		mw(capture(&user, &called)).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK || user != testUser {
			t.Errorf("status = %d user = %q", rr.Code, user)
		}
	})

	t.Run("bearer accepted", func(t *testing.T) {
		claims := validClaims()
		claims.Issuer = ""
		claims.Audience = nil
		var user string
		var called bool
		req := httptest.NewRequest(http.MethodPost, "/search", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, claims))
		rr := httptest.NewRecorder()
		mw(capture(&user, &called)).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK || user != "dashboard-svc" {
			t.Errorf("status = %d user = %q", rr.Code, user)
		}
	})

	t.Run("challenge lists both schemes", func(t *testing.T) {
		var user string
		var called bool
		req := httptest.NewRequest(http.MethodPost, "/search", http.NoBody)
		rr := httptest.NewRecorder()
		mw(capture(&user, &called)).ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
		if got := len(rr.Header().Values("WWW-Authenticate")); got != 2 {
			t.Errorf("WWW-Authenticate values = %d, want 2", got)
		}
	})
}

func TestAuthMiddleware_PreservesRequestID(t *testing.T) {
	mw := AuthMiddleware(AuthConfig{BasicUsername: testUser, BasicPasswordHash: hashPassword(t, testPassword)})

	var info audit.RequestInfo
	h := RequestID(mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		info = audit.GetRequestInfo(r.Context())
	})))

	req := httptest.NewRequest(http.MethodPost, "/query", http.NoBody)
	req.Header.Set(RequestIDHeader, "req-42")
	req.SetBasicAuth(testUser, testPassword)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if info.RequestID != "req-42" || info.UserID != testUser {
		t.Errorf("info = %+v", info)
	}
}
