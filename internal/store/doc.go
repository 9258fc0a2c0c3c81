// Package store provides the BBolt database holding encrypted notes.
//
// Database structure uses two buckets:
//   - records: note title (unique key, plaintext) to encrypted body token
//   - meta: vault identity (unencrypted)
//
// Titles are opaque keys to this package; bodies arrive already encrypted and
// leave untouched. BBolt provides ACID transactions, file locking, and
// corruption detection.
package store
