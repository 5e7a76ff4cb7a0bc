package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func authRouter(secret string) *gin.Engine {
	router := gin.New()
	router.POST("/admin", AuthRequired(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id")})
	})
	return router
}

func signToken(t *testing.T, secret string, expires time.Time) string {
	t.Helper()
	claims := &Claims{
		UserID: 7,
		Email:  "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthRequired(t *testing.T) {
	const secret = "test-secret"
	router := authRouter(secret)

	send := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("missing header", func(t *testing.T) {
		w := send("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Authorization header required")
	})

	t.Run("not bearer", func(t *testing.T) {
		w := send("Token abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := send("Bearer not.a.token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", time.Now().Add(time.Hour))
		w := send("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		token := signToken(t, secret, time.Now().Add(-time.Hour))
		w := send("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid", func(t *testing.T) {
		token := signToken(t, secret, time.Now().Add(time.Hour))
		w := send("Bearer " + token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":7`)
	})
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://dashboard.example.com"}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	t.Run("allowed origin echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://dashboard.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://dashboard.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "https://dashboard.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://dashboard.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows everyone", func(t *testing.T) {
		open := gin.New()
		open.Use(CORS([]string{"*"}))
		open.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		w := httptest.NewRecorder()
		open.ServeHTTP(w, req)
		assert.Equal(t, "https://anywhere.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	router := gin.New()
	router.Use(RequestLogger(log))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/ok?verbose=1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
