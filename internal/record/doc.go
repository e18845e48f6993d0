// Package record owns the log record exchanged over the wire.
//
// Ownership boundary:
// - record shape and equality
// - absolute-time encoding of the record timestamp
// - severity level names
package record
