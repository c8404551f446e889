// Package webhook receives Samsara alert deliveries over HTTP.
//
// The server verifies each delivery against the shared webhook secret
// (HMAC-SHA256 with a bounded timestamp to stop replays), parses the
// payload, and hands the event to the alert router asynchronously so
// Samsara gets its acknowledgement without waiting on Telegram.
package webhook
