package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/internal/metrics"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/authflow"
	"github.com/jrsteele09/go-dashboard-gateway/session"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	templates map[string]*template.Template

	sessions    *session.Store
	flows       authflow.Repo
	providers   *keycloak.Providers
	transport   keycloak.Transport
	metrics     *metrics.Metrics
	initTimeout time.Duration
	publicHost  string
}

type Option func(*Server)

// WithTransport replaces the client used for the password reset endpoints.
func WithTransport(t keycloak.Transport) Option {
	return func(s *Server) {
		s.transport = t
	}
}

// WithInitTimeout replaces auth.InitTimeout.
func WithInitTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.initTimeout = d
	}
}

func New(config config.Config, sessions *session.Store, flows authflow.Repo, providers *keycloak.Providers, m *metrics.Metrics, options ...Option) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("[Server New] session store is required")
	}
	if flows == nil {
		return nil, fmt.Errorf("[Server New] authorization flow repo is required")
	}
	if providers == nil {
		return nil, fmt.Errorf("[Server New] provider cache is required")
	}

	s := &Server{
		env:         config.GetEnv(),
		mux:         http.NewServeMux(),
		config:      config,
		sessions:    sessions,
		flows:       flows,
		providers:   providers,
		metrics:     m,
		initTimeout: auth.InitTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.transport == nil {
		s.transport = keycloak.NewHTTPTransport(providers.Client())
	}
	baseURL, err := url.Parse(config.GetBaseURL())
	if err != nil || baseURL.Host == "" {
		return nil, fmt.Errorf("[Server New] invalid base url %q", config.GetBaseURL())
	}
	s.publicHost = baseURL.Host

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}
	s.templates = templates

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != config.EnvDev {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, colourRed+error+colourReset)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + colourReset
	}
	return colourGray + paddedMethod + colourReset
}

// ANSI colours for the DEV route log.
const (
	colourRed   = "\033[31m"
	colourGray  = "\033[90m"
	colourReset = "\033[0m"
)

var methodColors = map[string]string{
	"GET":     "\033[32m",
	"POST":    "\033[34m",
	"DELETE":  "\033[33m",
	"OPTIONS": colourGray,
}
