// Package storage groups the implementations of database.Storage. The disk
// package writes one JSON file per block, the badger package keeps blocks in
// a badger key/value store and the memory package keeps them in process.
package storage
