// Package alerts turns raw Samsara webhook payloads into routed chat
// notifications.
//
// The alerts package parses alert events, classifies their severity,
// deduplicates webhook redeliveries, and dispatches a formatted message
// to the chat configured for the alert type. Events that name a fleet
// unit linked to a group chat are copied there as well. Dispatch never
// fails the caller; delivery problems are logged and dropped.
package alerts
