package presenter

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/authflow/internal/flow"
)

const (
	// DefaultListenAddr binds the callback listener to an ephemeral
	// loopback port.
	DefaultListenAddr = "127.0.0.1:0"

	// DefaultCallbackPath is the path the redirect URI points at.
	DefaultCallbackPath = "/callback"

	// shutdownTimeout bounds the callback server teardown.
	shutdownTimeout = 5 * time.Second
)

// successPage is shown in the browser tab after the redirect is captured.
const successPage = `<!DOCTYPE html>
<html>
<head><title>Sign-in complete</title></head>
<body>
<p>Sign-in complete. You can close this window and return to the application.</p>
</body>
</html>`

// LoopbackConfig configures a LoopbackPresenter.
type LoopbackConfig struct {
	// ListenAddr defaults to DefaultListenAddr.
	ListenAddr string

	// CallbackPath defaults to DefaultCallbackPath.
	CallbackPath string

	// OpenBrowser defaults to OpenBrowser. Tests inject their own.
	OpenBrowser func(url string) error

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// LoopbackPresenter presents authorization URLs in the system browser and
// captures the redirect on a localhost HTTP listener. It implements both
// flow.Presenter and flow.RedirectURIProvider: the listener is bound lazily
// on the first RedirectURI call so the redirect URI can carry the actual
// port.
type LoopbackPresenter struct {
	listenAddr   string
	callbackPath string
	openBrowser  func(url string) error
	logger       *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewLoopbackPresenter creates a LoopbackPresenter.
func NewLoopbackPresenter(cfg LoopbackConfig) *LoopbackPresenter {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = OpenBrowser
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LoopbackPresenter{
		listenAddr:   cfg.ListenAddr,
		callbackPath: cfg.CallbackPath,
		openBrowser:  cfg.OpenBrowser,
		logger:       cfg.Logger,
	}
}

// RedirectURI binds the loopback listener (once) and returns the redirect
// URI pointing at it. RedirectOptions are ignored: the loopback presenter
// is itself the "direct" side of the proxy-vs-native policy decision.
func (p *LoopbackPresenter) RedirectURI(_ flow.RedirectOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener == nil {
		ln, err := net.Listen("tcp", p.listenAddr)
		if err != nil {
			return "", fmt.Errorf("failed to bind loopback listener: %w", err)
		}
		p.listener = ln
	}
	return fmt.Sprintf("http://%s%s", p.listener.Addr().String(), p.callbackPath), nil
}

// Close releases the listener if Present was never reached.
func (p *LoopbackPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener != nil {
		err := p.listener.Close()
		p.listener = nil
		return err
	}
	return nil
}

// Present opens the system browser at the authorization URL and blocks
// until the provider redirects back to the loopback listener or the context
// is cancelled. Window hints are unused: the system browser controls its
// own chrome.
func (p *LoopbackPresenter) Present(ctx context.Context, authURL string, _ flow.WindowHints) (flow.Presentation, error) {
	p.mu.Lock()
	ln := p.listener
	p.listener = nil
	p.mu.Unlock()

	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", p.listenAddr)
		if err != nil {
			return flow.Presentation{}, fmt.Errorf("failed to bind loopback listener: %w", err)
		}
	}

	redirects := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(p.callbackPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(successPage))

		// First capture wins; the flow correlator absorbs duplicates
		// anyway, but there is no point forwarding them.
		select {
		case redirects <- "http://" + r.Host + r.URL.String():
		default:
		}
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	p.logger.Debug("opening browser for authorization", "listen", ln.Addr().String())
	if err := p.openBrowser(authURL); err != nil {
		return flow.Presentation{}, err
	}

	select {
	case raw := <-redirects:
		return flow.Presentation{Outcome: flow.PresentRedirect, RedirectURL: raw}, nil
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return flow.Presentation{}, fmt.Errorf("callback server failed: %w", err)
		}
		return flow.Presentation{Outcome: flow.PresentDismissed}, nil
	case <-ctx.Done():
		return flow.Presentation{Outcome: flow.PresentCancelled}, nil
	}
}
