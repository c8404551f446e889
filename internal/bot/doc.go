// Package bot is the Telegram command surface for fleet operations.
//
// Dispatchers ask it where trucks are, what the odometers read, and
// what maintenance is coming due; group chats can be linked to a unit
// number so commands there default to that truck. The bot long-polls
// Telegram and talks to the telemetry gateway, the maintenance sheet,
// the unit directory, and the document library.
package bot
