package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToString renders v the way the str builtin does: strings are returned as
// is, everything else goes through Repr.
func ToString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Repr(v)
}

// Repr renders v as compact JSON-like text. Strings are quoted, tuples render
// like lists and capabilities render through String or their conventional
// name.
func Repr(v any) string {
	var sb strings.Builder
	writeRepr(&sb, v)
	return sb.String()
}

func writeRepr(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(val))
	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))
	case float64:
		sb.WriteString(FormatFloat(val))
	case string:
		b, _ := json.Marshal(val)
		sb.Write(b)
	case []any:
		writeSeq(sb, val)
	case Tuple:
		writeSeq(sb, val)
	case *Map:
		sb.WriteByte('{')
		first := true
		val.Range(func(k string, item any) bool {
			if !first {
				sb.WriteByte(',')
			}
			first = false
			b, _ := json.Marshal(k)
			sb.Write(b)
			sb.WriteByte(':')
			writeRepr(sb, item)
			return true
		})
		sb.WriteByte('}')
	case fmt.Stringer:
		sb.WriteString(val.String())
	case Named:
		sb.WriteString("<" + val.CapabilityName() + ">")
	default:
		sb.WriteString(fmt.Sprintf("%v", val))
	}
}

func writeSeq(sb *strings.Builder, items []any) {
	sb.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeRepr(sb, item)
	}
	sb.WriteByte(']')
}

// FormatFloat renders f with the shortest representation that round-trips.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
