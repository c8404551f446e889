// Package directory persists the mapping between fleet unit numbers
// and Telegram group chats.
//
// Dispatch teams link a group chat to the unit it tracks, after which
// alerts and lookups for that unit can address the chat directly. The
// directory also remembers users who have talked to the bot. State is
// kept in a local SQLite database.
package directory
