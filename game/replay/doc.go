// Package replay persists finished or running games as JSON documents.
//
// A Document holds the full occupancy grid (rows x cols x layers) under
// "grid" and every player's per-tick records under "states". Loading a saved
// document reproduces both exactly, and Document.Engine rebuilds a playable
// engine from it.
//
// Frames reconstructs the board at every tick from the records alone, which
// is what the replay printer and the terminal viewer use.
package replay
