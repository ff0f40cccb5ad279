package gateway

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"codebuddy/internal/config"
	"codebuddy/internal/middleware"
)

// Stage names one step of the request pipeline.
type Stage string

const (
	StageCORS         Stage = "cors"
	StageBodyParsers  Stage = "body-parsers"
	StageLogger       Stage = "logger"
	StageRoutes       Stage = "routes"
	StageDiagnostics  Stage = "diagnostics"
	StageFallback     Stage = "fallback"
	StageErrorHandler Stage = "error-handler"
)

// ISOTimestamp matches JavaScript's Date.toISOString for UTC times.
const ISOTimestamp = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrAlreadyBuilt    = errors.New("gateway: handler already built")
	ErrDuplicatePrefix = errors.New("gateway: prefix already mounted")
	ErrInvalidPrefix   = errors.New("gateway: prefix must start with /")
)

// StateReporter exposes the database connection signal.
type StateReporter interface {
	State() config.State
}

// RouteCollection is a set of handlers mounted under a prefix.
type RouteCollection interface {
	Register(rg *gin.RouterGroup)
}

// Options configures a Gateway. Zero values fall back to defaults.
type Options struct {
	Env           string
	AllowedOrigin string
	BodyLimit     int64
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are honored. Empty trusts none.
	TrustedProxies []string
	DB             StateReporter
	Logger         *logrus.Logger
	// AccessLog enables a completion log line per request when non-nil.
	AccessLog       io.Writer
	ShutdownTimeout time.Duration
	Now             func() time.Time
}

type mount struct {
	prefix     string
	collection RouteCollection
}

// Gateway owns the HTTP pipeline. Route collections are mounted first,
// then Handler assembles the stages in their fixed order exactly once.
type Gateway struct {
	opts   Options
	log    *logrus.Logger
	mounts []mount

	once    sync.Once
	engine  *gin.Engine
	handler http.Handler
	stages  []Stage
}

func New(opts Options) *Gateway {
	if opts.Env == "" {
		opts.Env = config.EnvDevelopment
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = config.DefaultAllowedOrigin
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 10 << 20
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{opts: opts, log: opts.Logger}
}

// Mount binds a route collection to prefix.
func (g *Gateway) Mount(prefix string, rc RouteCollection) error {
	if g.engine != nil {
		return ErrAlreadyBuilt
	}
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return ErrInvalidPrefix
	}
	for _, m := range g.mounts {
		if m.prefix == prefix {
			return fmt.Errorf("%w: %s", ErrDuplicatePrefix, prefix)
		}
	}
	g.mounts = append(g.mounts, mount{prefix: prefix, collection: rc})
	return nil
}

// Prefixes lists mounted prefixes in mount order.
func (g *Gateway) Prefixes() []string {
	out := make([]string, 0, len(g.mounts))
	for _, m := range g.mounts {
		out = append(out, m.prefix)
	}
	return out
}

// Stages returns the pipeline order once the handler has been built.
func (g *Gateway) Stages() []Stage {
	return append([]Stage(nil), g.stages...)
}

// Handler builds the engine on first use.
func (g *Gateway) Handler() http.Handler {
	g.once.Do(g.build)
	return g.handler
}

// trimTrailingSlash serves "/api/topics/" as "/api/topics" instead of
// redirecting, so clients that append a slash still reach the route.
func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = strings.TrimRight(r.URL.RawPath, "/")
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) build() {
	engine := gin.New()
	engine.HandleMethodNotAllowed = false
	engine.RedirectTrailingSlash = false
	if err := engine.SetTrustedProxies(g.opts.TrustedProxies); err != nil {
		g.log.WithError(err).Warn("Invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}

	// gin runs middleware around handlers, so the error handler is
	// installed outermost to observe errors and panics from every stage.
	engine.Use(errorHandler(g.log, g.opts.Env == config.EnvProduction))

	engine.Use(middleware.CORS(g.opts.AllowedOrigin))
	g.stages = append(g.stages, StageCORS)

	// the parsers buffer their bodies first, so BodyLimit only wraps
	// the content types they leave untouched
	engine.Use(
		middleware.JSONBody(g.opts.BodyLimit),
		middleware.URLEncodedBody(g.opts.BodyLimit),
		middleware.BodyLimit(g.opts.BodyLimit),
	)
	g.stages = append(g.stages, StageBodyParsers)

	engine.Use(middleware.RequestLogger(g.log))
	if g.opts.AccessLog != nil {
		engine.Use(middleware.AccessLog(g.opts.AccessLog))
	}
	g.stages = append(g.stages, StageLogger)

	for _, m := range g.mounts {
		m.collection.Register(engine.Group(m.prefix))
		g.log.WithField("prefix", m.prefix).Debug("Mounted route collection")
	}
	g.stages = append(g.stages, StageRoutes)

	g.registerDiagnostics(engine)
	g.stages = append(g.stages, StageDiagnostics)

	engine.NoRoute(g.notFound)
	g.stages = append(g.stages, StageFallback)

	g.stages = append(g.stages, StageErrorHandler)
	g.engine = engine
	g.handler = trimTrailingSlash(engine)
}

func (g *Gateway) timestamp() string {
	return g.opts.Now().UTC().Format(ISOTimestamp)
}

func (g *Gateway) databaseState() config.State {
	if g.opts.DB == nil {
		return config.StateDisconnected
	}
	return g.opts.DB.State()
}
