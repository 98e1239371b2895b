// Package engine runs the link read-dispatch-write cycle.
//
// Ownership boundary:
// - byte loop over the transport
//
// - assembler to dispatcher handoff
//
// - frame writes and the fatal write-error path
//
// One byte is read, fed to the assembler, and any completed or invalid frame is fully
// answered before the next byte is read. READ loops are never interrupted by link input.
package engine
