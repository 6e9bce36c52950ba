// Command bindery fulfills license request artifacts into readable e-books.
//
// Workflow commands (authorize, fulfill, decrypt) stream progress lines to
// stderr and print the terminal outcome to stdout, exiting non-zero on a
// failed outcome. Queue commands manage the persistent job store used by
// `queue run`.
package main
