// Package oauthcache implements a client-credentials OAuth2 token cache:
// it acquires and caches access tokens per (token URL, client ID), refreshing
// them ahead of expiry and coalescing concurrent cache misses onto a single
// upstream request via golang.org/x/sync/singleflight.
package oauthcache
