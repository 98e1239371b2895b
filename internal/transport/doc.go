// Package transport opens the byte link the engine runs on.
//
// A device path opens a local UART in raw mode. tcp://host:port dials a
// network serial bridge and tcp-listen://addr waits for one controller
// connection; both carry the same unframed byte stream.
package transport
