// Package versionstore persists the published site version record.
//
// # Data Model
//
// A single Record exists at any time:
//
//	{
//	  "version": "1.3.0",
//	  "releaseDate": "2025-03-01",
//	  "changelog": [
//	    {"version": "1.3.0", "date": "2025-03-01T10:00:00.000Z", "type": "minor",
//	     "description": "New pricing page", "changes": []}
//	  ]
//	}
//
// Changelog entries are kept newest first. The record is never edited in
// place; Bump builds a replacement and Save swaps it in.
//
// # Backends
//
//   - FileStore: the version.json file served alongside the site. With
//     Watch enabled the parsed record is cached until fsnotify reports a
//     change to the file.
//   - SQLiteStore: the same record in SQLite (modernc.org/sqlite).
//   - MockStore: in-memory, for tests.
//
// # Errors
//
// Every read or parse failure wraps ErrUnavailable so callers can map it to
// a single "store unavailable" response with errors.Is.
package versionstore
