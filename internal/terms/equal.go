package terms

// Equal reports structural equality of two terms, ignoring spans. This is the
// single equality used for specializer matching, declaration lookups, and
// dictionary field comparison.
func Equal(a, b Term) bool {
	return ValueEqual(a.Value, b.Value)
}

// ValueEqual reports structural equality of two values. Variants never equal
// a different variant; in particular Integer(1) is not Float(1.0).
func ValueEqual(a, b Value) bool {
	switch av := a.(type) {
	case Variable:
		bv, ok := b.(Variable)
		return ok && av == bv
	case Integer:
		bv, ok := b.(Integer)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Dictionary:
		bv, ok := b.(Dictionary)
		return ok && fieldsEqual(av, bv)
	case ExternalInstance:
		bv, ok := b.(ExternalInstance)
		return ok && av.InstanceID == bv.InstanceID
	case Call:
		bv, ok := b.(Call)
		if !ok || av.Name != bv.Name || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !Equal(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case Operation:
		bv, ok := b.(Operation)
		if !ok || av.Operator != bv.Operator || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !Equal(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case InstancePattern:
		bv, ok := b.(InstancePattern)
		return ok && av.Tag == bv.Tag && fieldsEqual(av.Fields, bv.Fields)
	case DictionaryPattern:
		bv, ok := b.(DictionaryPattern)
		return ok && fieldsEqual(av.Fields, bv.Fields)
	}
	return false
}

func fieldsEqual(a, b Dictionary) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for k, av := range a.Fields {
		bv, ok := b.Fields[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// ListContains reports whether list holds a term structurally equal to want.
func ListContains(list List, want Term) bool {
	for _, t := range list {
		if Equal(t, want) {
			return true
		}
	}
	return false
}
