package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/authflow/internal/instrumentation"
	"github.com/teemow/authflow/internal/logging"
)

// WindowHints carries presentation hints for the user-agent window.
type WindowHints struct {
	Title  string
	Width  int
	Height int
	Modal  bool
}

// PresentOutcome classifies how a presentation ended.
type PresentOutcome int

// Presentation outcomes reported by a Presenter.
const (
	// PresentRedirect means the user-agent delivered a redirect.
	PresentRedirect PresentOutcome = iota

	// PresentDismissed means the user-agent went away without a response.
	PresentDismissed

	// PresentCancelled means the interaction was cancelled.
	PresentCancelled

	// PresentLocked means the user-agent could not be shown at all.
	PresentLocked
)

// Presentation is the terminal event of a single user-agent presentation.
type Presentation struct {
	Outcome     PresentOutcome
	RedirectURL string // set when Outcome is PresentRedirect
}

// Presenter hands an authorization URL to an external user-agent (in-app
// browser, system browser, native dialog) and blocks until the interaction
// ends. The engine does not know or care how it is implemented.
type Presenter interface {
	Present(ctx context.Context, authURL string, hints WindowHints) (Presentation, error)
}

// RedirectOptions parameterize redirect URI selection.
type RedirectOptions struct {
	// NativeScheme is a hint for platforms using custom-scheme redirects.
	NativeScheme string

	// UseIndirectionProxy selects a hosted redirect proxy over a direct
	// native-scheme or loopback URI. This is an explicit injected policy,
	// resolved once at flow construction; the engine never sniffs its
	// environment.
	UseIndirectionProxy bool

	// Overrides carries platform-specific URI overrides.
	Overrides map[string]string
}

// RedirectURIProvider chooses the redirect URI the request builder embeds.
type RedirectURIProvider interface {
	RedirectURI(opts RedirectOptions) (string, error)
}

// ClientIDSelector chooses which of several configured client identifiers
// applies for a platform/environment classification. The engine only
// requires that some client id be resolved before a request is built.
type ClientIDSelector interface {
	SelectClientID(platform string) (string, error)
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	// Presenter is required.
	Presenter Presenter

	// HTTPClient performs token-exchange and user-info calls
	// (default: http.DefaultClient).
	HTTPClient HTTPDoer

	// RedirectURIs resolves the redirect URI when the flow config leaves
	// it empty. Optional.
	RedirectURIs RedirectURIProvider

	// RedirectOptions are passed to RedirectURIs.
	RedirectOptions RedirectOptions

	// ClientIDs resolves the client id when the flow config leaves it
	// empty. Optional.
	ClientIDs ClientIDSelector

	// Platform is the classification passed to ClientIDs.
	Platform string

	// WindowHints are passed to every presentation.
	WindowHints WindowHints

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Instrumentation records flow metrics and spans. Optional.
	Instrumentation *instrumentation.Provider
}

// FlowResult combines the correlation result with the exchanged token for
// code-grant flows. Token is nil for implicit flows and non-success
// outcomes; the raw success parameters are always passed through unchanged.
type FlowResult struct {
	Result *Result
	Token  *TokenResponse
}

// Orchestrator composes the request builder, correlator, token exchanger
// and presenter into the full build -> present -> await -> (exchange) ->
// resolve sequence. It is the only component holding mutable flow state,
// and it holds it per Run call.
type Orchestrator struct {
	presenter    Presenter
	exchanger    *Exchanger
	redirectURIs RedirectURIProvider
	redirectOpts RedirectOptions
	clientIDs    ClientIDSelector
	platform     string
	hints        WindowHints
	logger       *slog.Logger
	metrics      *instrumentation.Metrics
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Presenter == nil {
		return nil, fmt.Errorf("presenter is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		presenter:    cfg.Presenter,
		exchanger:    NewExchanger(cfg.HTTPClient, logger),
		redirectURIs: cfg.RedirectURIs,
		redirectOpts: cfg.RedirectOptions,
		clientIDs:    cfg.ClientIDs,
		platform:     cfg.Platform,
		hints:        cfg.WindowHints,
		logger:       logger,
	}
	if cfg.Instrumentation != nil {
		o.metrics = cfg.Instrumentation.Metrics()
	} else {
		o.metrics = &instrumentation.Metrics{} // no-op recorder
	}
	return o, nil
}

// Run executes one complete authorization flow. The presentation is the
// single suspension point: control is yielded to the user-agent and
// resumption is driven by its event. The flow resolves exactly once;
// context cancellation resolves it as cancelled.
func (o *Orchestrator) Run(ctx context.Context, cfg Config, disc *DiscoveryDocument) (*FlowResult, error) {
	var err error
	if cfg.ClientID == "" && o.clientIDs != nil {
		cfg.ClientID, err = o.clientIDs.SelectClientID(o.platform)
		if err != nil {
			return nil, NewConfigError("client id selection failed: %v", err)
		}
	}
	if cfg.RedirectURI == "" && o.redirectURIs != nil {
		cfg.RedirectURI, err = o.redirectURIs.RedirectURI(o.redirectOpts)
		if err != nil {
			return nil, NewConfigError("redirect URI resolution failed: %v", err)
		}
	}

	req, err := NewRequest(cfg, disc)
	if err != nil {
		return nil, err
	}

	logger := logging.WithOperation(o.logger, "flow.run")
	if req.CallerSuppliedState() {
		logger.Warn("using caller-supplied state parameter; unpredictability assurance is reduced")
	}

	authURL, err := req.AuthorizationURL()
	if err != nil {
		return nil, err
	}

	corr := NewCorrelator(req, logger)
	if err := corr.Begin(); err != nil {
		return nil, err
	}

	started := time.Now()
	ctx, span := instrumentation.StartFlowSpan(ctx, string(req.Config().ResponseType))
	defer span.End()
	o.metrics.RecordFlowStarted(ctx, string(req.Config().ResponseType))

	go o.present(ctx, authURL, corr)

	res := corr.Wait(ctx)
	o.metrics.RecordFlowResolved(ctx, res.Outcome.String(), time.Since(started))

	if !res.Success() {
		if err := res.Err(); err != nil {
			instrumentation.SetSpanError(span, err)
			logger.Warn("authorization flow failed", logging.Outcome(res.Outcome.String()), logging.Err(err))
			return &FlowResult{Result: res}, err
		}
		// Cancel, dismiss and locked are normal terminal outcomes.
		instrumentation.SetSpanSuccess(span)
		logger.Info("authorization flow ended without a response", logging.Outcome(res.Outcome.String()))
		return &FlowResult{Result: res}, nil
	}

	result := &FlowResult{Result: res}
	if req.Config().ResponseType == ResponseTypeCode {
		code := res.Params[respParamCode]
		if code == "" {
			err := NewFlowError(ErrCodeInvalidResponse, "success response carries no authorization code")
			instrumentation.SetSpanError(span, err)
			return result, err
		}

		exchangeStarted := time.Now()
		token, err := o.exchanger.Exchange(ctx, code, req)
		if err != nil {
			o.metrics.RecordTokenExchange(ctx, instrumentation.StatusError, time.Since(exchangeStarted))
			instrumentation.SetSpanError(span, err)
			return result, err
		}
		o.metrics.RecordTokenExchange(ctx, instrumentation.StatusSuccess, time.Since(exchangeStarted))
		result.Token = token
	}

	instrumentation.SetSpanSuccess(span)
	logger.Info("authorization flow completed", logging.Outcome(res.Outcome.String()))
	return result, nil
}

// present drives the single user-agent presentation and feeds its terminal
// event into the correlator. Late or duplicate events are absorbed there.
func (o *Orchestrator) present(ctx context.Context, authURL string, corr *Correlator) {
	pres, err := o.presenter.Present(ctx, authURL, o.hints)
	if err != nil {
		o.logger.Warn("presenter failed", logging.Err(err))
		corr.Cancel()
		return
	}

	switch pres.Outcome {
	case PresentRedirect:
		corr.ResolveRedirect(pres.RedirectURL)
	case PresentDismissed:
		corr.Dismiss()
	case PresentLocked:
		corr.ReportLocked()
	default:
		corr.Cancel()
	}
}
