// Package core defines the shared contracts of go-bankconnect: endpoint
// configuration, the transport request/response shapes, the error code
// taxonomy, and the logging and metrics interfaces the other packages build
// on. It has no transport logic of its own.
package core
