// Package record provides the data model shared by the sampler and the store.
//
// This package contains type definitions and the timestamp codec only. The
// sampler produces records, the store persists them; record imports nothing
// internal so both can depend on it.
//
// Key design constraints:
//   - IntervalEntry and AverageEntry are immutable once written
//   - Timestamps persist as "YYYY-MM-DD HH:MM:SS" in UTC
//   - Durations persist as integer milliseconds
//   - All JSON tags use snake_case
package record
