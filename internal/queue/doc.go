// Package queue persists fulfillment jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats queries,
// stuck-job recovery, and the status transitions that mirror the fulfillment
// workflow. Queue items capture progress, the detected format, the rights
// status, and the final output path so the workflow manager can resume or
// report without additional state.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
