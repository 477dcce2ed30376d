// Package transport implements the pinned HTTPS channel the client speaks
// through: certificate fingerprint enforcement, the single in-flight request
// guard, and the mapping from HTTP statuses and network failures onto the
// library's error taxonomy.
package transport
