// Package database provides connection pool management for the tick archive.
//
// The archive is a single TimescaleDB (or plain PostgreSQL) database holding
// the ticks hypertable. The pool is only opened when archive.enabled is set.
package database
