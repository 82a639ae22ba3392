// Package kvstore provides the durable key-value storage that holds the
// transcript collection and the recorder checkpoint.
//
// Two backends satisfy the Store interface: an embedded SQLite database (the
// default, one row per key) and Redis for setups that share state with other
// tooling. Values are opaque byte slices; GetJSON and PutJSON cover the common
// case of structured records. Reads of a missing key return ErrNotFound.
//
// Schema changes bump schemaVersion in schema.go; users delete the database to
// adopt the new schema.
package kvstore
