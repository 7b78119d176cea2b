/*
Package domain contains the core domain models of the LogicLoom tutoring engine.

It defines the learning stages, the per-conversation session state and its namespaced
handler sub-records, the quiz bank entries, and the turn request/result shapes shared by
every transport. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Stage: The top-level phase of the tutoring flow (scenario, knowledge, logic, coding, assessment, transfer).
  - SessionState: The record threaded through router, handler and aggregator each turn.
  - QuizEntry: A static quiz bank item used by the transfer stage.
  - Event: A streaming turn event (token, final, error).
*/
package domain
