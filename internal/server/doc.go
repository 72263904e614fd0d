// Package server runs the short-lived loopback HTTP listener used to authorize playback control.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback with PKCE.
//
// The handler validates the state parameter, exchanges the authorization code (with the PKCE verifier) for tokens,
// and sends the result through a channel. It only processes one callback.
//
// # Usage
//
// `cadence auth` calls [Authorize], which serves the redirect URI's path on its host until the callback arrives
// or the context ends. The resulting refresh token is stored in config.toml and later used by the player.
package server
