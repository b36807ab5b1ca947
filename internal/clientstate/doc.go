// Package clientstate persists sitever-check state between runs.
//
// State lives in one SQLite file. Key-value pairs are partitioned by origin
// (scheme://host[:port]) the way a browser partitions local storage, so one
// state file can serve several sites. *Store satisfies monitor.Storage.
//
// The same file records installed worker registrations, which
// internal/worker refreshes during a cache purge.
package clientstate
