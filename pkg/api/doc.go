// Package api defines the request and response messages of the settleup.v1
// RPC services. Messages are plain structs encoded as JSON; money fields are
// decimal strings such as "12.50".
//
// Handlers and clients for the services live in package apiconnect.
package api
