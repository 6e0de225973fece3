package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/timevault/internal/handlers"
	"github.com/terminal-bench/timevault/internal/middleware"
	"github.com/terminal-bench/timevault/internal/treasury"
	"github.com/terminal-bench/timevault/internal/vault"
	"github.com/terminal-bench/timevault/pkg/amount"
)

const secret = "handler-test-secret"

type testServer struct {
	router *gin.Engine
	clock  *treasury.FakeClock
	vault  *vault.Vault
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &treasury.FakeClock{Time: 50_000}
	mem := treasury.NewMemory(amount.FromBaseUnits(500_000_000_000)) // 5000 whole units

	v, err := vault.New(vault.Config{
		Owner:               "owner",
		EscapeCaller:        "escape-caller",
		EscapeDestination:   "escape-destination",
		AbsoluteMinTimeLock: 600,
		TimeLock:            1000,
		SecurityGuard:       "guard",
		MaxGuardDelay:       100,
	}, clock, mem, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetAuthorized("owner", "spender", true))

	h := handlers.NewHandler(v, nil)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(secret))
	h.Register(api)

	return &testServer{router: r, clock: clock, vault: v}
}

func (s *testServer) do(t *testing.T, method, path, principal, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   principal,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestPaymentRoutes(t *testing.T) {
	t.Run("authorize then collect through the API", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/payments", "spender",
			`{"name":"rent","recipient":"recipient","amount":"10.00","delay_requested":0}`)
		require.Equal(t, http.StatusCreated, w.Code)

		var created struct {
			Index int `json:"index"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, 0, created.Index)

		w = s.do(t, http.MethodPost, "/api/v1/payments/0/collect", "recipient", "")
		assert.Equal(t, http.StatusConflict, w.Code) // too early

		s.clock.Advance(1001)
		w = s.do(t, http.MethodPost, "/api/v1/payments/0/collect", "recipient", "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodGet, "/api/v1/payments/0", "spender", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"paid"`)
	})

	t.Run("non-spender authorization maps to 403", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/v1/payments", "stranger",
			`{"name":"x","recipient":"recipient","amount":"1","delay_requested":0}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("bad amount maps to 400", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/v1/payments", "spender",
			`{"name":"x","recipient":"recipient","amount":"-5","delay_requested":0}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown index maps to 404", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/v1/payments/7/cancel", "owner", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("guard delay and owner cancel", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/v1/payments", "spender",
			`{"name":"rent","recipient":"recipient","amount":"10","delay_requested":0}`)
		require.Equal(t, http.StatusCreated, w.Code)

		w = s.do(t, http.MethodPost, "/api/v1/payments/0/delay", "guard", `{"extra_delay":50}`)
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodPost, "/api/v1/payments/0/delay", "guard", `{"extra_delay":60}`)
		assert.Equal(t, http.StatusConflict, w.Code) // budget exceeded

		w = s.do(t, http.MethodPost, "/api/v1/payments/0/cancel", "owner", "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodGet, "/api/v1/payments/0", "owner", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"canceled"`)
	})

	t.Run("list returns the whole ledger", func(t *testing.T) {
		s := newTestServer(t)
		for i := 0; i < 2; i++ {
			w := s.do(t, http.MethodPost, "/api/v1/payments", "spender",
				`{"name":"p","recipient":"recipient","amount":"1","delay_requested":0}`)
			require.Equal(t, http.StatusCreated, w.Code)
		}

		w := s.do(t, http.MethodGet, "/api/v1/payments", "owner", "")
		require.Equal(t, http.StatusOK, w.Code)

		var views []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
		assert.Len(t, views, 2)
	})
}

func TestAdminRoutes(t *testing.T) {
	t.Run("deposit and escape hatch", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/deposits", "anyone", `{"amount":"2.5"}`)
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodPost, "/api/v1/escape", "stranger", "")
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = s.do(t, http.MethodPost, "/api/v1/escape", "escape-caller", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "escape-destination")

		assert.Equal(t, amount.Zero, s.vault.Balance())
	})

	t.Run("spender registry and ownership", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPut, "/api/v1/spenders/newspender", "owner", `{"authorized":true}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, s.vault.IsAuthorized("newspender"))

		w = s.do(t, http.MethodPut, "/api/v1/spenders/newspender", "stranger", `{"authorized":false}`)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = s.do(t, http.MethodPut, "/api/v1/owner", "owner", `{"new_owner":"owner2"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, vault.Principal("owner2"), s.vault.Owner())
	})

	t.Run("config setters", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPut, "/api/v1/config/timelock", "owner", `{"value":500}`)
		assert.Equal(t, http.StatusBadRequest, w.Code) // at or below the absolute minimum

		w = s.do(t, http.MethodPut, "/api/v1/config/timelock", "owner", `{"value":700}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uint64(700), s.vault.TimeLock())

		w = s.do(t, http.MethodPut, "/api/v1/config/guard", "owner", `{"principal":"guard2"}`)
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodPut, "/api/v1/config/guard-delay", "owner", `{"value":900}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uint64(900), s.vault.MaxSecurityGuardDelay())
	})
}
