// Package connect brokers OAuth2 authorization-code flows for third-party
// music, video, and social platforms, persisting the granted credentials so
// downstream analytics calls can act on a user's behalf without forcing a
// re-authorization on every request.
//
// Flow:
//   - Authorize builds the provider authorize URL, binding the requesting user
//     and the target platform into the opaque state parameter.
//   - HandleCallback runs the callback state machine: validate the provider
//     response, decode state, resolve the platform's client configuration,
//     dispatch the platform-specific code exchange, persist the grant, and
//     produce a frontend redirect. The callback is itself a browser redirect
//     from the provider, so every outcome is a redirect, never an API error
//     body.
//
// Pieces are injected at construction: a ConfigResolver (primary table with a
// legacy fallback), a TokenStore (conflict-target upserts, duplicate
// reconciliation, expiry checks), a StateCodec, and a per-platform
// ExchangeRegistry. Bun-backed implementations of the stores live under
// repository; the wire strategies live under platforms.
//
// Known limitations, kept deliberately: no refresh-token path exists yet
// (an expired grant is reported the same as a missing one, the user must
// reconnect), and the default state codec is unauthenticated; see
// OpaqueStateCodec.
package connect
