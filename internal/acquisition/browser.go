package acquisition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// PageDriver is the browser surface the acquirer needs. The production
// implementation drives one chromedp page; tests substitute a fake.
type PageDriver interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitReady(ctx context.Context, loc Locator, timeout time.Duration) error
	Click(ctx context.Context, loc Locator) error
	Fill(ctx context.Context, loc Locator, value string) error
	AwaitDownload(ctx context.Context, timeout time.Duration) (string, error)
	RestoreCookies(ctx context.Context, cookies []*network.Cookie) error
	CaptureCookies(ctx context.Context) ([]*network.Cookie, error)
}

// Browser owns the chromedp allocator and the single page context used for
// the whole run.
type Browser struct {
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	ctx         context.Context
	downloadDir string
	downloads   *downloadWatcher
	logger      *slog.Logger
}

// NewBrowser launches the browser and prepares download capture into
// downloadDir. The returned Browser implements PageDriver.
func NewBrowser(parent context.Context, headless bool, downloadDir string, logger *slog.Logger) (*Browser, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		allocCancel: allocCancel,
		ctxCancel:   ctxCancel,
		ctx:         ctx,
		downloadDir: downloadDir,
		downloads:   newDownloadWatcher(),
		logger:      logger,
	}
	b.downloads.listen(ctx)

	// Start the browser and route downloads to named files in downloadDir.
	if err := chromedp.Run(ctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
	); err != nil {
		ctxCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return b, nil
}

// Close tears down the page and the browser process.
func (b *Browser) Close() {
	b.ctxCancel()
	b.allocCancel()
}

// Navigate loads url and waits for the document to become interactive.
func (b *Browser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	runCtx, cancel := b.boundedCtx(ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitReady blocks until the locator is visible.
func (b *Browser) WaitReady(ctx context.Context, loc Locator, timeout time.Duration) error {
	runCtx, cancel := b.boundedCtx(ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.WaitVisible(loc.Query, queryOption(loc)))
}

// Click clicks the first element matching the locator. The caller's context
// carries the attempt deadline.
func (b *Browser) Click(ctx context.Context, loc Locator) error {
	runCtx, cancel := b.boundedCtx(ctx, 0)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Click(loc.Query, queryOption(loc)))
}

// Fill sets the value of the input matching the locator.
func (b *Browser) Fill(ctx context.Context, loc Locator, value string) error {
	runCtx, cancel := b.boundedCtx(ctx, 0)
	defer cancel()
	return chromedp.Run(runCtx,
		chromedp.WaitVisible(loc.Query, queryOption(loc)),
		chromedp.SetValue(loc.Query, value, queryOption(loc)),
	)
}

// AwaitDownload waits for the next download to complete and returns the path
// of the downloaded file inside the download directory.
func (b *Browser) AwaitDownload(ctx context.Context, timeout time.Duration) (string, error) {
	guid, err := b.downloads.await(ctx, timeout)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.downloadDir, guid), nil
}

// RestoreCookies injects persisted cookies into the browser context.
func (b *Browser) RestoreCookies(ctx context.Context, cookies []*network.Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &expires
		}
		params = append(params, p)
	}

	runCtx, cancel := b.boundedCtx(ctx, 0)
	defer cancel()
	return chromedp.Run(runCtx, storage.SetCookies(params))
}

// CaptureCookies exports the current cookie jar.
func (b *Browser) CaptureCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	runCtx, cancel := b.boundedCtx(ctx, 0)
	defer cancel()
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	return cookies, err
}

// boundedCtx derives a chromedp-compatible context from the page context,
// honoring the caller's cancellation and an optional timeout.
func (b *Browser) boundedCtx(caller context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := b.ctx
	cancels := make([]context.CancelFunc, 0, 2)

	// Propagate caller cancellation onto the page context.
	ctx, cancel := context.WithCancel(ctx)
	cancels = append(cancels, cancel)
	stop := context.AfterFunc(caller, cancel)
	cancels = append(cancels, func() { stop() })

	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		cancels = append(cancels, cancelTimeout)
	} else if deadline, ok := caller.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		ctx, cancelDeadline = context.WithDeadline(ctx, deadline)
		cancels = append(cancels, cancelDeadline)
	}

	return ctx, func() {
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
	}
}

func queryOption(loc Locator) chromedp.QueryOption {
	if loc.Kind == LocatorXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// downloadWatcher collects browser download events so AwaitDownload can block
// on completion of the next download.
type downloadWatcher struct {
	completed chan string
}

func newDownloadWatcher() *downloadWatcher {
	return &downloadWatcher{completed: make(chan string, 4)}
}

func (w *downloadWatcher) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev any) {
		if e, ok := ev.(*browser.EventDownloadProgress); ok {
			if e.State == browser.DownloadProgressStateCompleted {
				select {
				case w.completed <- e.GUID:
				default:
				}
			}
		}
	})
}

func (w *downloadWatcher) await(ctx context.Context, timeout time.Duration) (string, error) {
	// Drain any completion left over from a previous week.
	for {
		select {
		case <-w.completed:
			continue
		default:
		}
		break
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case guid := <-w.completed:
		return guid, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", context.DeadlineExceeded
	}
}

// moveDownload relocates a completed download to its final artifact path.
func moveDownload(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(from, to)
}
