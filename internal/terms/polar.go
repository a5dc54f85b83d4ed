package terms

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ToPolar renders a term in Polar concrete syntax. Diagnostics embed this
// rendering so error messages read like the policy text that produced them.
func (t Term) ToPolar() string {
	return ToPolar(t.Value)
}

// ToPolar renders a value in Polar concrete syntax.
func ToPolar(v Value) string {
	switch val := v.(type) {
	case Variable:
		return string(val)
	case Integer:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		s := strconv.FormatFloat(float64(val), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case String:
		return strconv.Quote(string(val))
	case Boolean:
		if val {
			return "true"
		}
		return "false"
	case List:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = item.ToPolar()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Dictionary:
		return "{" + fieldsToPolar(val) + "}"
	case ExternalInstance:
		if val.Repr != "" {
			return val.Repr
		}
		return fmt.Sprintf("<instance %d>", val.InstanceID)
	case Call:
		parts := make([]string, len(val.Args))
		for i, arg := range val.Args {
			parts[i] = arg.ToPolar()
		}
		return string(val.Name) + "(" + strings.Join(parts, ", ") + ")"
	case Operation:
		return operationToPolar(val)
	case InstancePattern:
		return string(val.Tag) + "{" + fieldsToPolar(val.Fields) + "}"
	case DictionaryPattern:
		return "{" + fieldsToPolar(val.Fields) + "}"
	}
	return fmt.Sprintf("<unknown value %T>", v)
}

func fieldsToPolar(d Dictionary) string {
	if len(d.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + d.Fields[Symbol(k)].ToPolar()
	}
	return strings.Join(parts, ", ")
}

func operationToPolar(op Operation) string {
	parts := make([]string, len(op.Args))
	for i, arg := range op.Args {
		parts[i] = arg.ToPolar()
	}
	switch op.Operator {
	case OpAnd:
		return strings.Join(parts, " and ")
	case OpOr:
		return strings.Join(parts, " or ")
	case OpNot:
		return "not " + strings.Join(parts, "")
	case OpUnify:
		return strings.Join(parts, " = ")
	}
	return strings.Join(parts, ", ")
}
