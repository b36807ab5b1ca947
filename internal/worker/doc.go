// Package worker tracks the background worker scripts a site installs and
// refreshes them during a cache purge. Registrations persist in the client
// state database.
package worker
