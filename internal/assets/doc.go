// Package assets serves the static site and holds the embedded page
// templates.
//
// FileServer applies a cache policy per path: version.json and sw.js are
// always revalidated (Cache-Control: no-cache) so a published bump reaches
// clients on their next check, content-hashed bundles are immutable, and
// everything else is revalidated. sw.js is also served with
// Service-Worker-Allowed: / so it may control the whole origin.
package assets
