// Package tools runs the external programs behind device actions.
//
// ExecRunner executes local commands and maps their exit status.
// SSHFetcher streams a remote file over an SSH exec session.
package tools
