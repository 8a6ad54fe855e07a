// Package endpoint defines the capability contract between the HTTP
// adapter layer and an OAuth2 authorization-server engine.
//
// The engine never sees net/http types. It consumes a Request, which
// exposes the normalized query, form body, and Authorization header of
// an incoming HTTP request, and drives a Response, which accumulates
// the protocol-dictated status, headers, and body of the outgoing HTTP
// response. Both sides of the contract report failures as ordinary
// errors; the adapter layer folds them into its unified error type.
//
// Parameters are carried as an ordered multimap (Params) so the engine
// can distinguish "parameter repeated" from "parameter present once",
// which several OAuth2 checks require.
package endpoint
