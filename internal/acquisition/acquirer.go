package acquisition

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"chanperf/internal/config"
	"chanperf/internal/errors"
	"chanperf/internal/files"
	"chanperf/internal/session"
	"chanperf/internal/weeks"
)

// uiPace spaces locator attempts so fallback chains never hammer the admin UI.
var uiPace = rate.Every(400 * time.Millisecond)

// Acquirer owns the authenticated browser session and produces one raw export
// file per week.
type Acquirer struct {
	driver   PageDriver
	runner   *ChainRunner
	sessions *session.Store
	files    *files.Manager
	cfg      *config.Config
	prompter Prompter
	logger   *slog.Logger
	now      func() time.Time

	authenticated bool
}

// NewAcquirer wires an acquirer over an open page driver.
func NewAcquirer(driver PageDriver, sessions *session.Store, fm *files.Manager, cfg *config.Config, prompter Prompter, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	if prompter == nil {
		prompter = StdinPrompter{}
	}
	runner := NewChainRunner(driver.Click, cfg.Browser.AttemptTimeout, cfg.Browser.StepTimeout,
		rate.NewLimiter(uiPace, 1), logger)
	return &Acquirer{
		driver:   driver,
		runner:   runner,
		sessions: sessions,
		files:    fm,
		cfg:      cfg,
		prompter: prompter,
		logger:   logger,
		now:      time.Now,
	}
}

// EnsureAuthenticated restores the persisted session or performs a fresh
// login. The session file is written only when the run started without one.
func (a *Acquirer) EnsureAuthenticated(ctx context.Context) error {
	if a.authenticated {
		return nil
	}

	tracker := NewTracker(a.logger)
	state, found, err := a.sessions.Load()
	if err != nil {
		return errors.NewAuthenticationFailed(err)
	}
	if found {
		tracker.To(StateSessionLoaded)
	} else {
		tracker.To(StateUnauthenticated)
	}

	home := BuildStoreHomeURL(a.cfg.Store.Host, a.cfg.Store.Slug)
	flow := &loginFlow{
		driver:   a.driver,
		store:    a.cfg.Store,
		browser:  a.cfg.Browser,
		prompter: a.prompter,
		logger:   a.logger,
	}

	if found {
		if err := a.driver.RestoreCookies(ctx, state.Cookies); err != nil {
			return errors.NewAuthenticationFailed(err)
		}
		if err := a.driver.Navigate(ctx, home, a.cfg.Browser.NavigateTimeout); err != nil {
			return errors.NewNavigationTimeout(home, err)
		}
		if a.sessionAlive(ctx) {
			a.logger.Info("restored persisted session")
			tracker.To(StateAuthenticated)
			a.authenticated = true
			return nil
		}
		a.logger.Warn("persisted session no longer authenticated, logging in again")
	} else {
		if err := a.driver.Navigate(ctx, home, a.cfg.Browser.NavigateTimeout); err != nil {
			return errors.NewNavigationTimeout(home, err)
		}
	}

	if err := flow.run(ctx); err != nil {
		tracker.Fail(err)
		return err
	}
	tracker.To(StateAuthenticated)
	a.authenticated = true

	if !found {
		cookies, err := a.driver.CaptureCookies(ctx)
		if err != nil {
			a.logger.Warn("could not capture session cookies", slog.String("error", err.Error()))
			return nil
		}
		if err := a.sessions.Save(&session.State{Origin: home, Cookies: cookies}); err != nil {
			a.logger.Warn("could not persist session state", slog.String("error", err.Error()))
		}
	}
	return nil
}

// sessionAlive probes for the admin shell after a cookie restore.
func (a *Acquirer) sessionAlive(ctx context.Context) bool {
	for _, marker := range adminMarkers {
		if err := a.driver.WaitReady(ctx, marker, a.cfg.Browser.StepTimeout); err == nil {
			return true
		}
	}
	return false
}

// AcquireWeek exports one week's channel report and returns the path of the
// saved raw CSV. Failures are per-week; the session survives them.
func (a *Acquirer) AcquireWeek(ctx context.Context, week weeks.Range) (string, error) {
	tracker := NewTracker(a.logger)
	tracker.To(StateAuthenticated)

	url := BuildReportURL(a.cfg.Store.Host, a.cfg.Store.Slug, week, a.cfg.Report.Country)
	a.logger.Info("loading channel report",
		slog.String("week", week.String()),
		slog.String("url", url))

	if err := a.driver.Navigate(ctx, url, a.cfg.Browser.NavigateTimeout); err != nil {
		navErr := errors.NewNavigationTimeout(url, err)
		tracker.Fail(navErr)
		return "", navErr
	}
	// Give the report body a moment to render before probing for controls.
	if err := a.driver.WaitReady(ctx, Locator{LocatorCSS, "main"}, a.cfg.Browser.StepTimeout); err != nil {
		a.logger.Debug("report main region not detected, probing controls anyway")
	}
	tracker.To(StateReportPageLoaded)

	if err := a.openExportDialog(ctx); err != nil {
		tracker.Fail(err)
		return "", err
	}
	tracker.To(StateExportDialogOpen)

	// CSV is usually preselected; the capability is optional.
	if err := a.runner.Run(ctx, capCSVFormat); err != nil {
		tracker.Fail(err)
		return "", err
	}
	tracker.To(StateFormatSelected)

	if err := a.runner.Run(ctx, capConfirmExport); err != nil {
		tracker.Fail(err)
		return "", err
	}
	tracker.To(StateDownloadTriggered)

	downloaded, err := a.driver.AwaitDownload(ctx, a.cfg.Browser.DownloadTimeout)
	if err != nil {
		dlErr := errors.NewDownloadTimeout(a.cfg.Browser.DownloadTimeout.String(), err)
		tracker.Fail(dlErr)
		return "", dlErr
	}

	final := a.files.RawExportPath(a.cfg.Report.Country, week, a.now())
	if err := moveDownload(downloaded, final); err != nil {
		mvErr := errors.Wrap(errors.KindExecution, "download", "move raw export into place", err)
		tracker.Fail(mvErr)
		return "", mvErr
	}
	tracker.To(StateDownloadSaved)

	a.logger.Info("raw export saved",
		slog.String("week", week.String()),
		slog.String("path", final))
	return final, nil
}

// openExportDialog clicks through to the export dialog: the toolbar button
// when present, otherwise the overflow menu's export item.
func (a *Acquirer) openExportDialog(ctx context.Context) error {
	err := a.runner.Run(ctx, capExportButton)
	if err == nil {
		return nil
	}
	if errors.KindOf(err) != errors.KindUIElementNotFound {
		return err
	}

	a.logger.Debug("export button not found, trying overflow menu")
	if err := a.runner.Run(ctx, capOverflowMenu); err != nil {
		return err
	}
	return a.runner.Run(ctx, capExportMenuItem)
}
