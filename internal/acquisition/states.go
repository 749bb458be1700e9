package acquisition

import (
	"log/slog"
	"sync"
	"time"
)

// State identifies a position in the per-week acquisition flow.
type State string

const (
	StateInit              State = "init"
	StateSessionLoaded     State = "session_loaded"
	StateUnauthenticated   State = "unauthenticated"
	StateAuthenticated     State = "authenticated"
	StateReportPageLoaded  State = "report_page_loaded"
	StateExportDialogOpen  State = "export_dialog_open"
	StateFormatSelected    State = "format_selected"
	StateDownloadTriggered State = "download_triggered"
	StateDownloadSaved     State = "download_saved"
	StateFailed            State = "failed"
)

// Transition records one state change with its timestamp and, for failures,
// the cause.
type Transition struct {
	From State
	To   State
	At   time.Time
	Err  error
}

// Tracker follows the machine through its states. It exists for logging and
// post-mortem context; the control flow itself lives in the acquirer.
type Tracker struct {
	mu          sync.Mutex
	current     State
	transitions []Transition
	logger      *slog.Logger
}

// NewTracker starts a tracker in StateInit.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{current: StateInit, logger: logger}
}

// Current returns the present state.
func (t *Tracker) Current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// To advances the machine to the given state.
func (t *Tracker) To(next State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitions = append(t.transitions, Transition{From: t.current, To: next, At: time.Now()})
	t.logger.Debug("acquisition state change",
		slog.String("from", string(t.current)),
		slog.String("to", string(next)))
	t.current = next
}

// Fail moves the machine to the terminal failed state, recording the cause.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitions = append(t.transitions, Transition{From: t.current, To: StateFailed, At: time.Now(), Err: err})
	t.logger.Debug("acquisition failed",
		slog.String("from", string(t.current)),
		slog.String("error", err.Error()))
	t.current = StateFailed
}

// Transitions returns a copy of the transition history.
func (t *Tracker) Transitions() []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Transition, len(t.transitions))
	copy(out, t.transitions)
	return out
}
