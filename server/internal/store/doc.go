// Package store holds the in-memory keyspace. It provides a thread-safe map
// from key to (Value, expiry) with lazy expiry on read, plus a Sweeper that
// purges expired entries on a fixed interval.
//
// Value is a closed union of Scalar, List and Map. Rename and Update each run
// as a single critical section.
package store
