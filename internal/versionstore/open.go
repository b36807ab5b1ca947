// ABOUTME: Store construction from a driver name and path
// ABOUTME: Shared by the server and the bump command so both see the same record

package versionstore

import (
	"fmt"
	"log/slog"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns a Store for the given driver. An empty driver means DriverFile.
func Open(driver, path string, watch bool, logger *slog.Logger) (Store, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(path, FileOptions{Watch: watch, Logger: logger})
	case DriverSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q (want %q or %q)", driver, DriverFile, DriverSQLite)
	}
}
