// Package relay forwards requests upstream, rewriting headers and
// optionally injecting an OAuth2 client-credentials bearer token from a
// token cache, and returns the upstream response verbatim.
package relay
