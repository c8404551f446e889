// Package cli implements the command-line interface for fleetwatch.
//
// The cli package provides the Cobra-based CLI with subcommands for listing
// and searching vehicles, looking up locations and odometer readings, reading
// the maintenance sheet, and probing API connectivity. Output is text or JSON
// with optional sorting. All commands go through the same telemetry gateway
// the bot uses, holding one session scope for the life of the command.
package cli
