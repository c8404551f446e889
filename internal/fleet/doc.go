// Package fleet provides the domain types shared across fleetwatch: vehicles,
// GPS samples, odometer readings and the search matching used by the bot and
// the CLI. Records originate from the Samsara fleet API and keep that API's
// field names in their JSON tags.
package fleet
