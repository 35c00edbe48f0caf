// Package phase defines the combat phases a battle run executes each round.
//
// A Phase reads and mutates the shared Battlefield through a Context, and
// narrates what it did through the Context's Reporter. Phases never advance
// the round and never decide the battle outside of Victory. Every phase is a
// no-op on an empty battlefield.
package phase
