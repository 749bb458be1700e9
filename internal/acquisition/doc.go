// Package acquisition drives one browser session through the weekly export
// flow: load or establish an authenticated session, navigate to the
// parameterized report page, walk the export dialog via selector fallback
// chains, and capture the resulting download.
//
// The per-week flow is a state machine:
//
//	Init → SessionLoaded|Unauthenticated → Authenticated → ReportPageLoaded
//	     → ExportDialogOpen → FormatSelected → DownloadTriggered
//	     → DownloadSaved
//
// with Failed(reason) terminal for that week only. Selector fallback chains
// are data-driven candidate tables (selectors.go), not nested error
// handling, so new locators for a drifted UI version are a table edit.
package acquisition
