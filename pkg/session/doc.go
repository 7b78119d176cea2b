/*
Package session serializes the turns of each conversation and persists its state.

Turns of one conversation run one at a time in arrival order, locally through a
reference-counted per-conversation slot and, across replicas, through an optional
distributed lock. A turn's state is saved only when the turn succeeds.
*/
package session
