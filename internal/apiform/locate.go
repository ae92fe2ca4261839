package apiform

import "sort"

// cursor is a handle onto wherever a key was found inside a nested
// row, letting BadRowSwap read and rewrite that slot without knowing
// the shape of the tree above it.
type cursor struct {
	get func() interface{}
	set func(interface{})
}

// locate performs a deterministic depth-first search for the first
// occurrence of key anywhere inside node (which may be a mapping, a
// list, or a scalar), per BadRowSwap's "recursively locate the first
// occurrence" contract. Map traversal order is sorted by key so two
// runs over the same row agree on "first".
func locate(node interface{}, key string) (cursor, bool) {
	switch v := node.(type) {
	case Row:
		if _, ok := v[key]; ok {
			return cursor{
				get: func() interface{} { return v[key] },
				set: func(x interface{}) { v[key] = x },
			}, true
		}
		names := make([]string, 0, len(v))
		for k := range v {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if c, ok := locate(v[k], key); ok {
				return c, true
			}
		}
	case []interface{}:
		for i := range v {
			if c, ok := locate(v[i], key); ok {
				return c, true
			}
		}
	}
	return cursor{}, false
}
