// Package assetcache keeps named caches of fetched assets on disk, one
// subdirectory per cache.
package assetcache
