// Package turnlog records user and agent turns for later analysis.
//
// SQLite is the durable backend. Async wraps any ports.TurnLogger so a slow
// or failing log never delays or fails a tutoring turn.
package turnlog
