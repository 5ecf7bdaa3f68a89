// Package store provides SQLite-backed durable storage for blink telemetry.
//
// The store keeps two append-only logs:
//   - interval: one row per closed sampling window
//   - avg: one row per rollup batch of interval rows
//
// # Rollup
//
// Every successful InsertInterval signals a single-consumer rollup worker and
// returns without waiting. The worker folds the newest BatchSize interval rows
// into one avg row and deletes exactly those rows. Select, insert and delete
// run in one BEGIN IMMEDIATE transaction, and an in-process mutex keeps at most
// one rollup in flight. A failed rollup leaves its rows in place; the next
// signal reconsiders them.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout: wait for the write lock instead of failing
//   - _txlock=immediate: transactions take the write lock up front
//
// Per-connection settings travel in the DSN so every pooled connection gets
// them, not only the first one.
package store
