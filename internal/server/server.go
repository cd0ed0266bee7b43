package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"roadlens/internal/auth"
	"roadlens/internal/blobstore"
	"roadlens/internal/provider"
	"roadlens/internal/store"
)

const (
	allowRemoteEnvKey      = "ROADLENS_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 2 * time.Minute
	writeTimeout           = 7 * time.Minute
	idleTimeout            = 60 * time.Second
	shutdownTimeout        = 15 * time.Second
	uploadConcurrencyLimit = 4
)

// Options configures a Server.
type Options struct {
	Addr     string
	Store    store.EvidenceStore
	Uploader provider.Uploader
	// ProviderName is reported by /health.
	ProviderName string
	// Media is served under /media/ when the local provider is in use.
	Media blobstore.ObjectStore

	DeliveryBaseURL string
	ThumbnailWidth  int
	ThumbnailHeight int

	Tokens          *auth.TokenIssuer
	TrustUserHeader bool
	AdminTokenHash  string

	Metrics *Metrics
	Logger  *slog.Logger
}

// Server wraps HTTP handlers for the roadlens API.
type Server struct {
	addr            string
	photos          *PhotoService
	media           blobstore.ObjectStore
	providerName    string
	tokens          *auth.TokenIssuer
	trustUserHeader bool
	adminTokenHash  string
	metrics         *Metrics
	logger          *slog.Logger
	uploadLimiter   chan struct{}
}

// New creates a new server instance.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr: opts.Addr,
		photos: NewPhotoService(opts.Store, opts.Uploader, PhotoServiceOptions{
			DeliveryBaseURL: opts.DeliveryBaseURL,
			ThumbnailWidth:  opts.ThumbnailWidth,
			ThumbnailHeight: opts.ThumbnailHeight,
			Logger:          logger,
			Metrics:         opts.Metrics,
		}),
		media:           opts.Media,
		providerName:    opts.ProviderName,
		tokens:          opts.Tokens,
		trustUserHeader: opts.TrustUserHeader,
		adminTokenHash:  strings.TrimSpace(opts.AdminTokenHash),
		metrics:         opts.Metrics,
		logger:          logger,
		uploadLimiter:   make(chan struct{}, uploadConcurrencyLimit),
	}, nil
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withIdentity(s.routes()))
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log().Info("starting server", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.log().Info("stopping server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
