// Package monitor runs the client-side update session.
//
// A Monitor lives for one page load. It checks the stored site version
// against the version service exactly once and, when a newer version is
// published, purges cached assets, offers the user a reload and reloads
// the page at most once.
//
// # Lifecycle
//
//	Idle -> Checking -> UpToDate
//	                 -> Failed
//	                 -> UpdateAvailable -> Notifying -> Purging -> Reloading
//	                                                 -> Deferred
//
// UpToDate, Failed, Deferred and Reloading are terminal. With notifications
// disabled the session ends in UpdateAvailable after starting the purge.
//
// # Update flow
//
// On detection the new version is persisted immediately (app_version and
// last_update_check), so the prompt is shown at most once per published
// version even if the user chooses "later". A purge starts in the
// background. After ShowDelay the prompt appears with a countdown; when
// AutoReloadDelay elapses without an answer the monitor purges and reloads.
// Accepting purges, waits 300ms, fetches the page bypassing caches, waits
// another 300ms and reloads. Dismissing only hides the prompt.
//
// # Collaborators
//
// Everything outside the state machine is injected: Checker (the version
// service), Storage (durable per-origin state), Prompt, Page, Purger and
// Scheduler. Timers run on their own goroutines, so transitions are
// serialized with a mutex.
package monitor
