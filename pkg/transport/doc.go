// Package transport serves the authorization endpoints over HTTP.
//
// The Adapter routes the four protocol endpoints (authorize, token,
// refresh, and the protected userinfo resource) onto operations
// submitted to a dispatch worker, and renders replies with a
// configurable error-to-status policy. Server wraps the adapter in an
// http.Server with the standard middleware stack and graceful
// shutdown.
package transport
