// Package web adapts raw net/http requests and responses to the engine
// capability contract in pkg/endpoint.
//
// Two request adapters exist. Request is the full adapter: it consumes
// the request body (at most once) and normalizes query, form body, and
// Authorization header. Resource is the guard adapter: it reads only
// the Authorization header and never touches the body, so it is safe on
// handlers that need the raw payload for other purposes.
//
// Extraction is deliberately lazy. A request with an unparseable query
// or a non-form body still constructs; the corresponding field is
// stored as absent, and the failure surfaces only when a flow actually
// reads that field. A handler that never accesses an absent field never
// observes an extraction error. The one construction-time failure is
// more than one Authorization header, which is rejected immediately.
//
// Response accumulates the engine's response actions and finalizes them
// onto an http.ResponseWriter. The package also carries the HTTP
// middleware chain (request ID, logging, recovery) used by the server
// command.
package web
