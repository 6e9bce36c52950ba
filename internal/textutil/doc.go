// Package textutil provides filename sanitization and title derivation
// helpers used when naming fulfilled books on disk.
package textutil
