// Package client is the HTTP client for the site version service.
//
// It speaks the three JSON endpoints served by internal/server:
//
//   - POST /api/version/check  CheckVersion
//   - GET  /api/version        GetVersion
//   - GET  /api/changelog      GetChangelog
//
// Every request carries Cache-Control: no-cache so intermediaries never
// answer a version check from cache.
//
// Failures are classified with two sentinels. ErrNetwork covers transport
// problems (connection refused, timeouts). ErrProtocol covers everything the
// service did answer but could not be used: non-2xx status, a body that is
// not JSON, or success=false.
//
//	c, err := client.New("http://localhost:3000/api/version/check")
//	res, err := c.CheckVersion(ctx, "1.2.9")
//	if errors.Is(err, client.ErrNetwork) { ... }
package client
