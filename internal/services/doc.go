// Package services defines the [Client] interface for the music account and implements it against a Mobileclient-compatible proxy.
//
// # Client Interface
//
// The deduplication passes only depend on [Client], so they can run against the in-memory fake in internal/testing.
//
// # Proxy Implementation
//
// [MusicService] communicates with an HTTP proxy that wraps the unofficial Mobileclient API.
//
// Login posts the credentials and device id to /auth/login. The session token returned by the proxy is
// attached to every later request by an [oauth2.Transport] built from a static token source.
//
// Mutating calls (entry removal, song deletion) wait on a [rate.Limiter] before going out.
// There is no retry: the first failure is returned to the caller.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Login() not called or rejected
//   - [shared.ErrAuthFailed] : the login request itself failed
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
package services
