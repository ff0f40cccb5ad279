package gateway_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codebuddy/internal/config"
	"codebuddy/internal/gateway"
	"codebuddy/internal/testutil"
)

const origin = "http://localhost:5173"

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

type fakeDB struct{ state config.State }

func (f fakeDB) State() config.State { return f.state }

// collectionFunc adapts a function to gateway.RouteCollection.
type collectionFunc func(rg *gin.RouterGroup)

func (f collectionFunc) Register(rg *gin.RouterGroup) { f(rg) }

func noop(*gin.RouterGroup) {}

var prefixes = []string{
	"/api/auth",
	"/api/users",
	"/api/topics",
	"/api/questions",
	"/api/progress",
	"/api/badges",
	"/api/voice-interview",
}

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newGateway(t *testing.T, env string, db gateway.StateReporter) *gateway.Gateway {
	t.Helper()
	gw := gateway.New(gateway.Options{
		Env:           env,
		AllowedOrigin: origin,
		DB:            db,
		Logger:        quietLogger(),
		Now:           func() time.Time { return fixedNow },
	})
	for _, p := range prefixes {
		require.NoError(t, gw.Mount(p, collectionFunc(noop)))
	}
	return gw
}

func TestUnknownRouteReturns404(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, fakeDB{config.StateConnected})

	rr := testutil.Do(t, gw.Handler(), http.MethodGet, "/nonexistent", nil, "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	body := testutil.Decode(t, rr)
	assert.Equal(t, map[string]any{
		"message": "Route not found",
		"path":    "/nonexistent",
		"method":  "GET",
	}, body)
}

func TestUnknownRouteKeepsQueryAndMethod(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, nil)

	rr := testutil.Do(t, gw.Handler(), http.MethodDelete, "/api/nothing?x=1", nil, "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	body := testutil.Decode(t, rr)
	assert.Equal(t, "/api/nothing?x=1", body["path"])
	assert.Equal(t, "DELETE", body["method"])
}

func TestHealthListsPrefixes(t *testing.T) {
	for _, state := range []config.State{config.StateConnected, config.StateDisconnected} {
		t.Run(string(state), func(t *testing.T) {
			gw := newGateway(t, config.EnvDevelopment, fakeDB{state})

			rr := testutil.Do(t, gw.Handler(), http.MethodGet, "/health", nil, "")

			require.Equal(t, http.StatusOK, rr.Code)
			body := testutil.Decode(t, rr)
			assert.Equal(t, "OK", body["status"])
			assert.Equal(t, string(state), body["database"])
			assert.Equal(t, "2025-03-14T09:26:53.589Z", body["timestamp"])

			routes, ok := body["routes"].([]any)
			require.True(t, ok)
			require.Len(t, routes, len(prefixes))
			for i, p := range prefixes {
				assert.Equal(t, p, routes[i])
			}
		})
	}
}

func TestHealthWithoutDatabaseIsDisconnected(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, nil)

	body := testutil.Decode(t, testutil.Do(t, gw.Handler(), http.MethodGet, "/health", nil, ""))
	assert.Equal(t, "disconnected", body["database"])
}

func TestRootReportsEnvironment(t *testing.T) {
	gw := newGateway(t, config.EnvProduction, fakeDB{config.StateConnected})

	rr := testutil.Do(t, gw.Handler(), http.MethodGet, "/", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := testutil.Decode(t, rr)
	assert.Equal(t, "CodeBuddy API is running...", body["message"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "production", body["environment"])
	assert.Equal(t, "2025-03-14T09:26:53.589Z", body["timestamp"])
}

func TestRootDefaultsToDevelopment(t *testing.T) {
	gw := gateway.New(gateway.Options{Logger: quietLogger()})

	body := testutil.Decode(t, testutil.Do(t, gw.Handler(), http.MethodGet, "/", nil, ""))
	assert.Equal(t, "development", body["environment"])
	assert.Equal(t, "disconnected", body["database"])
}

func TestAuthTestRoute(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, nil)

	rr := testutil.Do(t, gw.Handler(), http.MethodGet, "/api/auth/test", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := testutil.Decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Auth test route is working!", body["message"])
	assert.Equal(t, "2025-03-14T09:26:53.589Z", body["timestamp"])
}

func failing(err error) collectionFunc {
	return func(rg *gin.RouterGroup) {
		rg.GET("/fail", func(c *gin.Context) {
			_ = c.Error(err)
		})
		rg.GET("/panic", func(c *gin.Context) {
			panic("boom")
		})
	}
}

func TestServerErrorHidesDetailInProduction(t *testing.T) {
	gw := gateway.New(gateway.Options{Env: config.EnvProduction, Logger: quietLogger()})
	require.NoError(t, gw.Mount("/api/broken", failing(errors.New("database exploded"))))

	rr := testutil.Do(t, gw.Handler(), http.MethodGet, "/api/broken/fail", nil, "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, map[string]any{"message": "Internal server error"}, testutil.Decode(t, rr))
}

func TestServerErrorShowsDetailOutsideProduction(t *testing.T) {
	for _, env := range []string{config.EnvDevelopment, "test", "staging"} {
		t.Run(env, func(t *testing.T) {
			gw := gateway.New(gateway.Options{Env: env, Logger: quietLogger()})
			require.NoError(t, gw.Mount("/api/broken", failing(errors.New("database exploded"))))

			rr := testutil.Do(t, gw.Handler(), http.MethodGet, "/api/broken/fail", nil, "")

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			body := testutil.Decode(t, rr)
			assert.Equal(t, "Internal server error", body["message"])
			assert.Equal(t, "database exploded", body["error"])
		})
	}
}

func TestPanicBecomesServerError(t *testing.T) {
	gw := gateway.New(gateway.Options{Env: config.EnvDevelopment, Logger: quietLogger()})
	require.NoError(t, gw.Mount("/api/broken", failing(errors.New("unused"))))

	rr := testutil.Do(t, gw.Handler(), http.MethodGet, "/api/broken/panic", nil, "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := testutil.Decode(t, rr)
	assert.Equal(t, "Internal server error", body["message"])
	assert.Equal(t, "boom", body["error"])
}

func echo() collectionFunc {
	return func(rg *gin.RouterGroup) {
		rg.POST("/echo", func(c *gin.Context) {
			var in map[string]any
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
				return
			}
			c.JSON(http.StatusOK, in)
		})
	}
}

func TestBodyLimitApplies(t *testing.T) {
	gw := gateway.New(gateway.Options{BodyLimit: 64, Logger: quietLogger()})
	require.NoError(t, gw.Mount("/api/echo", echo()))
	h := gw.Handler()

	small := testutil.Do(t, h, http.MethodPost, "/api/echo/echo", map[string]string{"name": "ok"}, "")
	assert.Equal(t, http.StatusOK, small.Code)
	assert.Equal(t, "ok", testutil.Decode(t, small)["name"])

	large := testutil.Do(t, h, http.MethodPost, "/api/echo/echo", map[string]string{"name": strings.Repeat("x", 128)}, "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, large.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/echo/echo", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDefaultBodyLimitIsTenMegabytes(t *testing.T) {
	gw := gateway.New(gateway.Options{Logger: quietLogger()})
	reached := false
	require.NoError(t, gw.Mount("/api/echo", collectionFunc(func(rg *gin.RouterGroup) {
		rg.POST("/echo", func(c *gin.Context) {
			reached = true
			c.Status(http.StatusNoContent)
		})
	})))

	payload := `{"blob":"` + strings.Repeat("a", 10<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/echo/echo", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.False(t, reached)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)

	assert.Less(t, rr.Code, 300)
	assert.Equal(t, origin, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-Requested-With")
}

func TestCORSOtherOriginGetsNoAllowHeader(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "OK", testutil.Decode(t, rr)["status"])
}

func listing() collectionFunc {
	return func(rg *gin.RouterGroup) {
		rg.GET("", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"list": true}) })
		rg.GET("/:id", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": c.Param("id")}) })
	}
}

func TestTrailingSlashServedWithoutRedirect(t *testing.T) {
	gw := gateway.New(gateway.Options{Logger: quietLogger()})
	require.NoError(t, gw.Mount("/api/topics", listing()))
	h := gw.Handler()

	rr := testutil.Do(t, h, http.MethodGet, "/api/topics/", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, testutil.Decode(t, rr)["list"])

	rr = testutil.Do(t, h, http.MethodGet, "/api/topics/7/", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "7", testutil.Decode(t, rr)["id"])

	rr = testutil.Do(t, h, http.MethodGet, "/health/", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnknownRouteWithTrailingSlashKeepsPath(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, nil)

	rr := testutil.Do(t, gw.Handler(), http.MethodGet, "/nonexistent/", nil, "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "/nonexistent/", testutil.Decode(t, rr)["path"])
}

func clientIP() collectionFunc {
	return func(rg *gin.RouterGroup) {
		rg.GET("", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })
	}
}

func TestForwardedForIgnoredByDefault(t *testing.T) {
	gw := gateway.New(gateway.Options{Logger: quietLogger()})
	require.NoError(t, gw.Mount("/ip", clientIP()))

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "192.0.2.1", rr.Body.String())
}

func TestForwardedForHonoredFromTrustedProxy(t *testing.T) {
	gw := gateway.New(gateway.Options{Logger: quietLogger(), TrustedProxies: []string{"192.0.2.0/24"}})
	require.NoError(t, gw.Mount("/ip", clientIP()))

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "203.0.113.9", rr.Body.String())
}

func TestInvalidTrustedProxiesTrustNone(t *testing.T) {
	gw := gateway.New(gateway.Options{Logger: quietLogger(), TrustedProxies: []string{"not-an-ip"}})
	require.NoError(t, gw.Mount("/ip", clientIP()))

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "192.0.2.1", rr.Body.String())
}

func TestRequestIDEchoed(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))

	rr = testutil.Do(t, gw.Handler(), http.MethodGet, "/health", nil, "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestStagesOrder(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, nil)
	assert.Empty(t, gw.Stages())

	gw.Handler()

	assert.Equal(t, []gateway.Stage{
		gateway.StageCORS,
		gateway.StageBodyParsers,
		gateway.StageLogger,
		gateway.StageRoutes,
		gateway.StageDiagnostics,
		gateway.StageFallback,
		gateway.StageErrorHandler,
	}, gw.Stages())
}

func TestMountValidation(t *testing.T) {
	gw := gateway.New(gateway.Options{Logger: quietLogger()})

	require.NoError(t, gw.Mount("api/auth/", collectionFunc(noop)))
	assert.Equal(t, []string{"/api/auth"}, gw.Prefixes())

	assert.ErrorIs(t, gw.Mount("/api/auth", collectionFunc(noop)), gateway.ErrDuplicatePrefix)
	assert.ErrorIs(t, gw.Mount("/", collectionFunc(noop)), gateway.ErrInvalidPrefix)

	gw.Handler()
	assert.ErrorIs(t, gw.Mount("/api/late", collectionFunc(noop)), gateway.ErrAlreadyBuilt)
}

func TestPrefixesEmpty(t *testing.T) {
	gw := gateway.New(gateway.Options{Logger: quietLogger()})
	assert.NotNil(t, gw.Prefixes())
	assert.Empty(t, gw.Prefixes())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	gw := newGateway(t, config.EnvDevelopment, fakeDB{config.StateConnected})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/health", ln.Addr().String())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartFailsWhenPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	gw := newGateway(t, config.EnvDevelopment, nil)
	err = gw.Start(context.Background(), port)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen on port "+port)
}
