package acquisition

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"chanperf/internal/errors"
)

// LocatorKind distinguishes how a locator query is interpreted.
type LocatorKind string

const (
	LocatorCSS   LocatorKind = "css"
	LocatorXPath LocatorKind = "xpath"
)

// Locator is one candidate way to find a UI element.
type Locator struct {
	Kind  LocatorKind
	Query string
}

// Capability names one UI interaction with its ordered locator candidates.
// Candidates are tried in order; the first that succeeds within the
// per-attempt timeout advances the flow. Optional capabilities absorb total
// failure, modelling try-click-then-ignore steps without exception
// suppression.
type Capability struct {
	Name       string
	Candidates []Locator
	Optional   bool
}

// Export flow capability tables. The admin UI renders the export controls
// differently across versions; each table carries every variant observed so
// far. Adding a locator for a new UI version is a table edit only.
var (
	capExportButton = Capability{
		Name: "export_button",
		Candidates: []Locator{
			{LocatorCSS, `button[aria-label='Export']`},
			{LocatorXPath, `//button[normalize-space(.)='Export']`},
			{LocatorXPath, `//*[@role='button'][contains(normalize-space(.), 'Export')]`},
		},
		// Not optional: when all candidates miss, the acquirer falls back
		// to the overflow-menu path instead of failing the week.
	}

	capOverflowMenu = Capability{
		Name: "overflow_menu",
		Candidates: []Locator{
			{LocatorCSS, `button[aria-label='More actions']`},
			{LocatorCSS, `button[aria-haspopup='menu']`},
		},
	}

	capExportMenuItem = Capability{
		Name: "export_menu_item",
		Candidates: []Locator{
			{LocatorXPath, `//*[@role='menuitem'][contains(normalize-space(.), 'Export')]`},
			{LocatorXPath, `//*[contains(normalize-space(text()), 'Export')]`},
		},
	}

	capCSVFormat = Capability{
		Name: "csv_format",
		Candidates: []Locator{
			{LocatorXPath, `//*[@role='menuitem'][contains(normalize-space(.), 'CSV')]`},
			{LocatorXPath, `//button[contains(normalize-space(.), 'CSV')]`},
			{LocatorXPath, `//label[contains(normalize-space(.), 'CSV')]`},
			{LocatorXPath, `//*[normalize-space(text())='CSV']`},
		},
		// CSV is already the default on most versions.
		Optional: true,
	}

	capConfirmExport = Capability{
		Name: "confirm_export",
		Candidates: []Locator{
			{LocatorXPath, `//div[@role='dialog']//button[contains(normalize-space(.), 'Export')]`},
			{LocatorCSS, `button[aria-label='Export']`},
			{LocatorXPath, `//button[contains(normalize-space(.), 'Export')]`},
		},
	}
)

// AttemptFunc performs one locator attempt. The context carries the
// per-attempt deadline; implementations return promptly once it expires.
type AttemptFunc func(ctx context.Context, loc Locator) error

// ChainRunner executes capability tables against an AttemptFunc with
// per-attempt and per-step budgets, pacing attempts through a shared rate
// limiter so retries never hammer the UI.
type ChainRunner struct {
	attempt        AttemptFunc
	attemptTimeout time.Duration
	stepTimeout    time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// NewChainRunner builds a runner. The limiter may be nil for unpaced
// execution (tests).
func NewChainRunner(attempt AttemptFunc, attemptTimeout, stepTimeout time.Duration, limiter *rate.Limiter, logger *slog.Logger) *ChainRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainRunner{
		attempt:        attempt,
		attemptTimeout: attemptTimeout,
		stepTimeout:    stepTimeout,
		limiter:        limiter,
		logger:         logger,
	}
}

// Run tries the capability's candidates in order. It returns nil as soon as
// one succeeds. When every candidate fails within the step budget the result
// is UIElementNotFound, or nil for optional capabilities.
func (r *ChainRunner) Run(ctx context.Context, cap Capability) error {
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()

	tried := 0
	for _, loc := range cap.Candidates {
		if stepCtx.Err() != nil {
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(stepCtx); err != nil {
				break
			}
		}

		tried++
		attemptCtx, cancelAttempt := context.WithTimeout(stepCtx, r.attemptTimeout)
		err := r.attempt(attemptCtx, loc)
		cancelAttempt()
		if err == nil {
			r.logger.Debug("capability satisfied",
				slog.String("capability", cap.Name),
				slog.String("locator", loc.Query))
			return nil
		}
		r.logger.Debug("locator candidate failed",
			slog.String("capability", cap.Name),
			slog.String("locator", loc.Query),
			slog.String("error", err.Error()))
	}

	if cap.Optional {
		r.logger.Debug("optional capability skipped",
			slog.String("capability", cap.Name),
			slog.Int("tried", tried))
		return nil
	}
	return errors.NewUIElementNotFound(cap.Name, tried)
}
