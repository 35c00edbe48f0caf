// Package battlefield holds the mutable state of one battle run.
//
// A Battlefield is owned by exactly one run. Entities reference forces and
// forces reference teams by id; the battlefield resolves those links and keeps
// the active set, graveyard, round counter and verdict consistent. All mutation
// goes through the methods here so that an entity enters the graveyard exactly
// once and the victor, once set, never changes.
package battlefield
