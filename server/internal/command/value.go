package command

import (
	"strings"

	"github.com/minikv/minikv/server/internal/store"
)

const (
	elemSep  = ","
	fieldSep = ":"
)

// ParseValue classifies a raw wire token. A token holding both ',' and ':'
// is a Map of comma-separated key:value pairs (pairs without ':' are
// dropped); a token holding only ',' is a List; anything else is a Scalar.
// There is no escaping of either delimiter.
func ParseValue(raw string) store.Value {
	hasElem := strings.Contains(raw, elemSep)
	switch {
	case hasElem && strings.Contains(raw, fieldSep):
		m := make(store.Map)
		for _, pair := range strings.Split(raw, elemSep) {
			k, v, ok := strings.Cut(pair, fieldSep)
			if !ok {
				continue
			}
			m[k] = v
		}
		return m
	case hasElem:
		return store.List(strings.Split(raw, elemSep))
	default:
		return store.Scalar(raw)
	}
}

// RenderValue formats v the way GET reports it, without the type suffix.
// Map pairs are emitted in ascending key order.
func RenderValue(v store.Value) string {
	switch v := v.(type) {
	case store.Scalar:
		return string(v)
	case store.List:
		return strings.Join(v, elemSep)
	case store.Map:
		keys := v.SortedKeys()
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+fieldSep+v[k])
		}
		return strings.Join(pairs, elemSep)
	default:
		panic("command: unhandled value type " + v.TypeName())
	}
}
