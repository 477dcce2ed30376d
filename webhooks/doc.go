// Package webhooks processes the notification callbacks the API sends to a
// registered notify_uri: state verification against the stored notification,
// dedupe through a delivery ledger, and handler retries with backoff.
package webhooks
