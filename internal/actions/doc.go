// Package actions implements the local effects behind link commands.
//
// Ownership boundary:
// - Provider contract consumed by the dispatcher
//
// - reachability probes (ping command, kernel route lookup)
//
// - remote file retrieval (local command, SSH stream)
//
// - shutdown request
//
// Every Provider call blocks until the effect has finished or failed.
package actions
