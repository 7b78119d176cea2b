/*
Package ports defines the driven ports (interfaces) for the LogicLoom engine.

These interfaces decouple the tutoring core from external implementations, allowing
the engine to work with various model providers, storage backends and turn loggers.

# Key Interfaces

  - Completer: The external text-completion function, synchronous or streaming.
  - PromptSource: Supplies the prompt configuration of each stage handler.
  - StateStore: Persists and loads the SessionState of a conversation.
  - DistributedLocker: Provides distributed locking for serializing turns across replicas.
  - TurnLogger: Records user and agent turns; failures never affect the turn.
*/
package ports
