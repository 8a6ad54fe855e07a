// Package engine provides a reference in-memory implementation of the
// endpoint contract: a small authorization server supporting the
// authorization-code grant with refresh-token rotation and JWT access
// tokens.
//
// It exists so the server command and end-to-end tests can run real
// flows without an external protocol engine. Clients live in a static
// registry, authorization codes and refresh tokens in expiring
// in-memory stores; nothing is persisted. Owner consent is a pluggable
// Solicitor hook, defaulting to allow-everything for demo use.
package engine
