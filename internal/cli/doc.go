// Package cli implements the viewer command line.
//
// Every command loads configuration from the environment (and an optional
// .env file), opens the session API in local or remote mode, runs one
// operation and closes the API again. Progress of each operation is logged
// to stderr; command output goes to stdout.
//
// Commands:
//   - list, show: inspect sessions
//   - new, add, rename, rm: manage sessions
//   - op: run a viewer command (show, hide, focus, dup, delete, move)
//   - export, import: move the collection between stores
//   - flatten, compile: render a session with the native compositor
//   - login, logout: manage saved sync service credentials
package cli
