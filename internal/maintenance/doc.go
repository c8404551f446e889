// Package maintenance reads the fleet's service schedule from a Google
// Sheet published to the web as HTML.
//
// The shop keeps the sheet; the bot only reads it. Rows are parsed
// tolerantly (the sheet is hand-edited, so malformed rows are skipped,
// not fatal) and cached for ten minutes. Queries can cross-check due
// mileage against live odometer readings supplied by the caller.
package maintenance
