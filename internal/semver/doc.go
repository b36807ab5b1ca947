// Package semver orders and bumps site version strings of the form
// major.minor.patch.
//
// Parsing is deliberately lenient: "1.0" equals "1.0.0" and "1.x.0" equals
// "1.0.0". A version string from a client is never rejected, it only ever
// compares lower.
package semver
