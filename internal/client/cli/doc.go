// Package cli provides the interactive snapgram terminal client.
//
// It wires configuration, the local state database, the backend client and
// the authentication store into a small REPL. Typical flow: restore the
// saved session, start a background connectivity watcher, then run
// commands until the user exits.
//
// Commands:
//   - signup        create an account (email, username, password, date of birth)
//   - login         sign in with email and password
//   - logout        mark the user offline and sign out
//   - status        show connectivity and the signed-in user
//   - exit | quit   leave the program
//
// Notifications raised by the store are printed as "[positive] message" or
// "[negative] message". The REPL is started via App.Run(ctx), which blocks
// until the user exits.
package cli
