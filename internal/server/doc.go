// Package server is the site version HTTP service.
//
// # Endpoints
//
//	GET  /api/version        current version, release date, server time
//	POST /api/version/check  {clientVersion} -> updateAvailable, latestVersion
//	GET  /api/changelog      changelog entries, newest first
//	GET  /changelog          the changelog as an HTML page
//	GET  /health             liveness
//	GET  /*                  static site (when site.static_dir is set)
//
// Every API response carries success. Failures are
// {success:false, error, message?} with 400 for bad input and 500 when the
// version store cannot be read.
//
// # Layers
//
// Service holds the operations and knows nothing about HTTP. Server wires
// it to a chi router with CORS, request IDs, debug request logs and a
// recoverer that turns panics into a JSON 500. Run listens on TCP or, when
// tailscale is enabled, on a tsnet node.
package server
