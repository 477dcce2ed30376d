// Package models holds the typed entities returned by the API: accounts,
// balances, transactions, banks, payments, notifications, users, and the bank
// synchronization status. Entities are immutable snapshots of a remote
// resource; changing a field locally has no remote effect until the entity is
// re-submitted through a session call.
//
// Each writable entity declares its outbound payload through WritablePayload,
// which emits only the fields the server accepts on create and update calls.
// Everything else on the struct is read-only metadata.
package models
