// Package samsara is the telemetry gateway between fleetwatch and the
// Samsara fleet API. It owns one shared, reference-counted HTTP session,
// a short-lived cache of the full vehicle listing, and the retry policy
// applied to every upstream call.
//
// All read accessors follow the same contract: they return data, an
// empty result, or a not-found boolean. Network failures are logged and
// absorbed here so callers (the bot, the webhook router, the CLI) never
// see a transport error.
//
// Callers bracket their work in a session scope:
//
//	release := client.Acquire()
//	defer release()
//
//	vehicles := client.GetVehicles(ctx, true)
//
// Scopes nest freely; the underlying session is created on the first
// acquire and torn down when the last scope releases it.
package samsara
