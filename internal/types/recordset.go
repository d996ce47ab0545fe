// Package types contains shared types used across multiple packages to avoid import cycles.
package types

import (
	"encoding/json"
	"time"

	"github.com/elliotchance/orderedmap/v2"
)

// Record is one decoded JSON object (an issue or pull request).
// Field order follows the input document; values stay raw JSON so that
// numbers keep their literal text.
type Record struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.NewOrderedMap[string, json.RawMessage]()}
}

// Set stores a field. An existing key keeps its position and takes the new value.
func (r *Record) Set(key string, value json.RawMessage) {
	r.fields.Set(key, value)
}

// Get returns the raw value of a field.
func (r *Record) Get(key string) (json.RawMessage, bool) {
	return r.fields.Get(key)
}

// Delete removes a field and reports whether it was present.
func (r *Record) Delete(key string) bool {
	return r.fields.Delete(key)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return r.fields.Len()
}

// Keys returns the field names in input order.
func (r *Record) Keys() []string {
	return r.fields.Keys()
}

// Each calls fn for every field in input order.
func (r *Record) Each(fn func(key string, value json.RawMessage)) {
	for el := r.fields.Front(); el != nil; el = el.Next() {
		fn(el.Key, el.Value)
	}
}

// Clone returns a shallow copy; raw values are shared and never mutated.
func (r *Record) Clone() *Record {
	c := NewRecord()
	r.Each(func(key string, value json.RawMessage) {
		c.Set(key, value)
	})
	return c
}

// RecordSet represents the ordered records decoded from one input file.
type RecordSet struct {
	Records []*Record
	Stats   DecodeStats
}

// Len returns the number of records.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}

// DecodeStats contains statistics about the decode pass.
type DecodeStats struct {
	RecordsRead   int           // Number of array elements decoded
	WrappedValues int           // Non-object elements wrapped as {"value": ...}
	BytesRead     int64         // Size of the input document
	Duration      time.Duration // Time taken to read and decode
}
