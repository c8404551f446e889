// Package notifier delivers formatted fleet notifications to chat
// destinations.
//
// The Telegram implementation paces consecutive sends and retries
// transient API failures with exponential backoff; the dry-run
// implementation logs messages instead of delivering them, for local
// runs without a bot token. Other channels (email paging) hang off the
// same Notifier interface.
package notifier
