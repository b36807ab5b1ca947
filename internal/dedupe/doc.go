// Package dedupe suppresses repeated events by key within a time window.
package dedupe
