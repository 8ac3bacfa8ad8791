// Package history implements the yank history store: an insertion-ordered,
// size-bounded log of yank entries for one process, optionally mirrored to a
// single file that other processes may write concurrently.
//
// # Identity
//
// Entry ids come from a per-store sequence starting at 1. They are never
// written to disk and are regenerated on every load, so an id is only a
// handle into this process's view. Do not keep ids across restarts.
//
// # Reconciliation
//
// Add and Delete change the in-memory log and schedule a debounced flush.
// A flush, and every call to Values, runs one reconciliation:
//
//  1. stat the file and decide from its size and modification time whether
//     another writer changed it;
//  2. read the unread suffix when the file only grew, the whole file
//     otherwise;
//  3. merge what was read into memory, appending when every read entry is
//     newer than the last held one and falling back to a sorted union;
//  4. drop the oldest entries once the log exceeds the truncate threshold;
//  5. append unsaved entries, or rewrite the file after a delete, GC or a
//     full merge.
//
// Reconciliations of one store never overlap. Across processes the file is
// additionally guarded by an advisory lock where the platform has one.
//
// Any open or decode failure disables persistence for the rest of the
// store's life; the in-memory log keeps working.
package history
