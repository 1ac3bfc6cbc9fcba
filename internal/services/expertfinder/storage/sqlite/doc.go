// Package sqlite persists expert records and sign-in tokens in a single
// SQLite file. The record side accepts the same predicate grammar as the
// hosted table store so the service can run without cloud storage.
package sqlite
