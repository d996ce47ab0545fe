package flatten

import (
	"github.com/dbsmedya/json2csv/internal/source"
	"github.com/dbsmedya/json2csv/internal/types"
)

// Explode expands rec into one record per element of its array field.
//
// Each result is a copy of rec without the field. An object element has
// its keys merged in, overriding existing ones; any other element is
// stored back under the field name. An empty array yields no records.
// If the field is missing or not an array, rec is returned unchanged.
func Explode(rec *types.Record, field string) ([]*types.Record, error) {
	raw, ok := rec.Get(field)
	if !ok || types.KindOf(raw) != types.KindArray {
		return []*types.Record{rec}, nil
	}

	elems, err := source.DecodeArray(raw)
	if err != nil {
		return nil, types.MalformedInput(err, "explode field %q", field)
	}

	out := make([]*types.Record, 0, len(elems))
	for _, el := range elems {
		r := rec.Clone()
		r.Delete(field)

		if types.KindOf(el) == types.KindObject {
			obj, err := source.DecodeObject(el)
			if err != nil {
				return nil, types.MalformedInput(err, "explode field %q", field)
			}
			obj.Each(r.Set)
		} else {
			r.Set(field, el)
		}
		out = append(out, r)
	}
	return out, nil
}
