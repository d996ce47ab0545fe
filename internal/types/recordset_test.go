package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord_PreservesInsertionOrder(t *testing.T) {
	r := NewRecord()
	r.Set("title", json.RawMessage(`"Fix bug"`))
	r.Set("id", json.RawMessage(`1`))
	r.Set("user", json.RawMessage(`{"login":"octocat"}`))

	assert.Equal(t, []string{"title", "id", "user"}, r.Keys())
	assert.Equal(t, 3, r.Len())
}

func TestRecord_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	r := NewRecord()
	r.Set("a", json.RawMessage(`1`))
	r.Set("b", json.RawMessage(`2`))
	r.Set("a", json.RawMessage(`3`))

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, json.RawMessage(`3`), v)
}

func TestRecord_DeleteAndClone(t *testing.T) {
	r := NewRecord()
	r.Set("a", json.RawMessage(`1`))
	r.Set("b", json.RawMessage(`2`))

	c := r.Clone()
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("missing"))

	assert.Equal(t, []string{"b"}, c.Keys())
	assert.Equal(t, []string{"a", "b"}, r.Keys(), "clone must not affect the original")
}

func TestRecord_Each(t *testing.T) {
	r := NewRecord()
	r.Set("x", json.RawMessage(`true`))
	r.Set("y", json.RawMessage(`null`))

	var visited []string
	r.Each(func(key string, value json.RawMessage) {
		visited = append(visited, key+"="+string(value))
	})
	assert.Equal(t, []string{"x=true", "y=null"}, visited)
}

func TestRecordSet_Len(t *testing.T) {
	var nilSet *RecordSet
	assert.Equal(t, 0, nilSet.Len())

	rs := &RecordSet{
		Records: []*Record{NewRecord(), NewRecord()},
		Stats: DecodeStats{
			RecordsRead: 2,
			BytesRead:   64,
			Duration:    5 * time.Millisecond,
		},
	}
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 2, rs.Stats.RecordsRead)
	assert.Equal(t, 0, rs.Stats.WrappedValues)
}
