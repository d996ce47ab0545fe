// Package source reads issue and pull request exports into a RecordSet.
package source

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/dbsmedya/json2csv/internal/logger"
	"github.com/dbsmedya/json2csv/internal/types"
)

// ValueField is the column used for array elements that are not objects.
const ValueField = "value"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options controls how the input document is located.
type Options struct {
	// DataPath is a dot-separated path from a top-level object to the
	// array of records, e.g. "data.items". Empty means the document itself
	// must be the array.
	DataPath string
}

// ReadFile reads and decodes the JSON document at path.
// Read errors are marked types.ErrIOFailure, decode errors types.ErrMalformedInput.
func ReadFile(path string, opts Options, log *logger.Logger) (*types.RecordSet, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.IOFailure(err, "failed to read %s", path)
	}

	rs, err := Decode(data, opts)
	if err != nil {
		return nil, err
	}
	rs.Stats.BytesRead = int64(len(data))
	rs.Stats.Duration = time.Since(start)

	log.Debugw("Decoded input",
		"path", path,
		"records", rs.Stats.RecordsRead,
		"wrapped", rs.Stats.WrappedValues,
		"bytes", rs.Stats.BytesRead,
	)
	return rs, nil
}

// Decode parses a whole JSON document into a RecordSet.
func Decode(data []byte, opts Options) (*types.RecordSet, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !json.Valid(data) {
		// Let the decoder produce a positioned error message.
		var discard interface{}
		err := json.Unmarshal(data, &discard)
		return nil, types.MalformedInput(err, "input is not valid JSON")
	}

	raw := json.RawMessage(data)
	if opts.DataPath != "" {
		var err error
		if raw, err = walkDataPath(raw, opts.DataPath); err != nil {
			return nil, err
		}
	}

	if kind := types.KindOf(raw); kind != types.KindArray {
		return nil, types.MalformedInput(nil, "top-level value is %s, expected an array of records", kind)
	}

	elems, err := DecodeArray(raw)
	if err != nil {
		return nil, types.MalformedInput(err, "failed to decode record array")
	}

	rs := &types.RecordSet{Records: make([]*types.Record, 0, len(elems))}
	for i, elem := range elems {
		var rec *types.Record
		if types.KindOf(elem) == types.KindObject {
			if rec, err = DecodeObject(elem); err != nil {
				return nil, types.MalformedInput(err, "failed to decode record %d", i)
			}
		} else {
			rec = types.NewRecord()
			rec.Set(ValueField, elem)
			rs.Stats.WrappedValues++
		}
		rs.Records = append(rs.Records, rec)
	}
	rs.Stats.RecordsRead = len(rs.Records)

	return rs, nil
}

// walkDataPath follows a dot-separated path through nested objects.
func walkDataPath(raw json.RawMessage, dataPath string) (json.RawMessage, error) {
	current := raw
	for _, part := range strings.Split(dataPath, ".") {
		if types.KindOf(current) != types.KindObject {
			return nil, types.MalformedInput(nil, "invalid data path %q: %q is not inside an object", dataPath, part)
		}
		obj, err := DecodeObject(current)
		if err != nil {
			return nil, types.MalformedInput(err, "invalid data path %q", dataPath)
		}
		next, ok := obj.Get(part)
		if !ok {
			return nil, types.MalformedInput(nil, "invalid data path %q: %q not found", dataPath, part)
		}
		current = next
	}
	return current, nil
}
