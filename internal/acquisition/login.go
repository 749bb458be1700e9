package acquisition

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"chanperf/internal/config"
	"chanperf/internal/errors"
)

// Prompter collects one line of operator input. The interactive login and
// the second-factor challenge use it; a fake stands in during tests.
type Prompter interface {
	Prompt(label string) (string, error)
}

// StdinPrompter reads responses from standard input.
type StdinPrompter struct{}

func (StdinPrompter) Prompt(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Login page locators. The account flow asks for email and password on
// separate screens, both submitted through the same commit button.
var (
	locLoginEmail    = Locator{LocatorCSS, `#account_email`}
	locLoginPassword = Locator{LocatorCSS, `#account_password`}
	locLoginCommit   = Locator{LocatorCSS, `button[name='commit']`}

	// Either variant appears depending on the enrolled second factor.
	otpInputs = []Locator{
		{LocatorCSS, `input[name='two_factor_code']`},
		{LocatorCSS, `input[name='otp']`},
	}

	// Presence of either marks an authenticated admin shell.
	adminMarkers = []Locator{
		{LocatorCSS, `nav[aria-label='Primary']`},
		{LocatorCSS, `#AppFrameMain`},
	}
)

// loginFlow establishes an authenticated session on the driver, either by
// filling credentials or by pausing for a manual login.
type loginFlow struct {
	driver   PageDriver
	store    config.StoreConfig
	browser  config.BrowserConfig
	prompter Prompter
	logger   *slog.Logger
}

// run drives the configured login path. The page must already be on the
// store URL so the admin has redirected to the login screen.
func (f *loginFlow) run(ctx context.Context) error {
	if f.store.AutoLogin {
		if err := f.autoLogin(ctx); err != nil {
			return errors.NewAuthenticationFailed(err)
		}
	} else {
		if err := f.interactiveLogin(ctx); err != nil {
			return errors.NewAuthenticationFailed(err)
		}
	}
	return nil
}

func (f *loginFlow) autoLogin(ctx context.Context) error {
	f.logger.Info("logging in with configured credentials")

	if err := f.driver.Fill(ctx, locLoginEmail, f.store.Email); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	if err := f.driver.Click(ctx, locLoginCommit); err != nil {
		return fmt.Errorf("submit email: %w", err)
	}
	if err := f.driver.Fill(ctx, locLoginPassword, f.store.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := f.driver.Click(ctx, locLoginCommit); err != nil {
		return fmt.Errorf("submit password: %w", err)
	}

	if err := f.maybeSecondFactor(ctx); err != nil {
		return err
	}
	return f.awaitAdmin(ctx, f.browser.NavigateTimeout)
}

// maybeSecondFactor answers an OTP challenge when one appears. No challenge
// within the step budget means the account has no second factor enrolled.
func (f *loginFlow) maybeSecondFactor(ctx context.Context) error {
	var input Locator
	found := false
	for _, loc := range otpInputs {
		if err := f.driver.WaitReady(ctx, loc, f.browser.AttemptTimeout); err == nil {
			input = loc
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	code := f.store.OTPCode
	if code == "" {
		var err error
		code, err = f.prompter.Prompt("Two-factor code")
		if err != nil {
			return fmt.Errorf("read second-factor code: %w", err)
		}
	}
	if code == "" {
		return fmt.Errorf("second-factor challenge shown but no code available")
	}

	if err := f.driver.Fill(ctx, input, code); err != nil {
		return fmt.Errorf("fill second-factor code: %w", err)
	}
	if err := f.driver.Click(ctx, locLoginCommit); err != nil {
		return fmt.Errorf("submit second-factor code: %w", err)
	}
	return nil
}

// interactiveLogin hands control to the operator and waits for the admin
// shell to appear. Headless mode cannot host a manual login.
func (f *loginFlow) interactiveLogin(ctx context.Context) error {
	if f.browser.Headless {
		return fmt.Errorf("interactive login needs a visible browser; set auto_login or disable headless")
	}

	f.logger.Info("waiting for manual login in the browser window")
	if _, err := f.prompter.Prompt("Log in in the browser window, then press Enter"); err != nil {
		return fmt.Errorf("wait for operator: %w", err)
	}
	return f.awaitAdmin(ctx, 5*time.Minute)
}

// awaitAdmin blocks until an admin shell marker renders.
func (f *loginFlow) awaitAdmin(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("admin shell did not appear within %s", timeout)
		}
		per := remaining / time.Duration(len(adminMarkers))
		if per > f.browser.StepTimeout {
			per = f.browser.StepTimeout
		}
		for _, marker := range adminMarkers {
			if err := f.driver.WaitReady(ctx, marker, per); err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}
