// Package server runs the short-lived HTTP listener that completes Spotify's authorization code flow.
//
// [LoginFlow] binds the redirect URI (127.0.0.1:8888/callback by default), opens the consent page in
// the browser and waits for [OAuthHandler] to deliver a token. The handler validates the state
// parameter, performs the code exchange once and rejects replays.
//
// Routing goes through [BasicRouter], an [http.ServeMux] wrapper with method filtering and a
// [Middleware] stack ([RequestLogger], [Recoverer]).
package server
