// Package cli provides the interactive foodie command-line client.
//
// It wires configuration, the local database, the optional sync server and
// the session controller behind a small REPL. Typical flow: register or log
// in (or start a guest session), declare allergens, scan labels, review the
// history. A background watcher pings the server and flips the app between
// online and offline mode; everything keeps working offline.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
