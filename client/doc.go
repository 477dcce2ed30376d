// Package client exposes the two call surfaces of the API: Connection for
// application-scoped OAuth operations authenticated with the client
// credentials, and Session for user-scoped resource operations authenticated
// with an access token. Each instance owns exactly one pinned channel and
// allows one request at a time; callers needing parallelism use several
// instances.
package client
