package kb

import (
	"fmt"

	"github.com/fconil/oso/internal/diag"
	"github.com/fconil/oso/internal/rules"
	"github.com/fconil/oso/internal/terms"
)

// paramMatch is the outcome of matching one rule parameter against one
// prototype parameter: a match, or a human-readable reason it failed.
type paramMatch struct {
	ok     bool
	reason string
}

func matched() paramMatch { return paramMatch{ok: true} }

func mismatch(format string, args ...any) paramMatch {
	return paramMatch{reason: fmt.Sprintf(format, args...)}
}

// paramFieldsMatch reports whether rule specializer fields satisfy prototype
// specializer fields: the rule's fields must be a superset with equal values
// on every overlapping key. The relation is deliberately asymmetric; a rule
// may be more specific than its prototype but never less.
func paramFieldsMatch(prototypeFields, ruleFields terms.Dictionary) bool {
	for key, prototypeValue := range prototypeFields.Fields {
		ruleValue, ok := ruleFields.Fields[key]
		if !ok || !terms.Equal(ruleValue, prototypeValue) {
			return false
		}
	}
	return true
}

// checkPatternParam matches a rule pattern specializer against a prototype
// pattern specializer. Tag mismatches fall back to nominal subclassing via
// the registered MRO chain; a specializer class without a registered MRO is
// an operational error, not a match failure.
func (kb *KnowledgeBase) checkPatternParam(index int, rulePattern, prototypePattern terms.Pattern) (paramMatch, error) {
	switch prototype := prototypePattern.(type) {
	case terms.InstancePattern:
		switch rule := rulePattern.(type) {
		case terms.InstancePattern:
			if prototype.Tag == rule.Tag {
				if paramFieldsMatch(prototype.Fields, rule.Fields) {
					return matched(), nil
				}
				return mismatch("Rule specializer %s on parameter %d did not match prototype specializer %s because the specializer fields did not match.",
					terms.ToPolar(rule), index, terms.ToPolar(prototype)), nil
			}
			// Tags differ: the rule specializer must be a subclass of the
			// prototype specializer.
			constant, ok := kb.constants[prototype.Tag]
			if !ok {
				return paramMatch{}, diag.NewOperationalError(
					"Unregistered specializer class %s should have been caught before rule validation.", prototype.Tag)
			}
			instance, ok := constant.Value.(terms.ExternalInstance)
			if !ok {
				return paramMatch{}, diag.NewOperationalError(
					"Specializer class %s is registered but not bound to an external instance.", prototype.Tag)
			}
			ruleMRO, ok := kb.mro[rule.Tag]
			if !ok {
				return paramMatch{}, diag.NewOperationalError(
					"All registered classes must have a registered MRO. Class %s does not have a registered MRO.", rule.Tag)
			}
			if !containsID(ruleMRO, instance.InstanceID) {
				return mismatch("Rule specializer %s on parameter %d must be a subclass of prototype specializer %s",
					rule.Tag, index, prototype.Tag), nil
			}
			if !paramFieldsMatch(prototype.Fields, rule.Fields) {
				return mismatch("Rule specializer %s on parameter %d did not match prototype specializer %s because the specializer fields did not match.",
					terms.ToPolar(rule), index, terms.ToPolar(prototype)), nil
			}
			return matched(), nil

		case terms.DictionaryPattern:
			// `Dictionary{...}` written as an instance pattern matches a
			// bare dictionary pattern by the same superset rule.
			if prototype.Tag == "Dictionary" {
				if paramFieldsMatch(prototype.Fields, rule.Fields) {
					return matched(), nil
				}
				return mismatch("Specializer mismatch on parameter %d. Rule specializer fields %s do not match prototype specializer fields %s.",
					index, terms.ToPolar(rule.Fields), terms.ToPolar(prototype.Fields)), nil
			}
		}

	case terms.DictionaryPattern:
		// A dictionary prototype matches either a dictionary pattern or an
		// instance pattern, tag ignored.
		var ruleFields terms.Dictionary
		switch rule := rulePattern.(type) {
		case terms.DictionaryPattern:
			ruleFields = rule.Fields
		case terms.InstancePattern:
			ruleFields = rule.Fields
		}
		if paramFieldsMatch(prototype.Fields, ruleFields) {
			return matched(), nil
		}
		return mismatch("Specializer mismatch on parameter %d. Rule specializer fields %s do not match prototype specializer fields %s.",
			index, terms.ToPolar(ruleFields), terms.ToPolar(prototype.Fields)), nil
	}

	return mismatch("Mismatch on parameter %d. Rule parameter %s does not match prototype parameter %s.",
		index, terms.ToPolar(rulePattern), terms.ToPolar(prototypePattern)), nil
}

func containsID(ids []uint64, want uint64) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

// checkValueParam matches a rule value against a prototype value. Lists
// match when the rule list contains every prototype element regardless of
// order; dictionaries by field superset; everything else by structural
// equality.
func checkValueParam(index int, ruleValue, prototypeValue terms.Value) paramMatch {
	switch prototype := prototypeValue.(type) {
	case terms.List:
		rule, ok := ruleValue.(terms.List)
		if !ok {
			break
		}
		for _, want := range prototype {
			if !terms.ListContains(rule, want) {
				return mismatch("Invalid parameter %d. Rule prototype expected list %s, got list %s.",
					index, terms.ToPolar(prototype), terms.ToPolar(rule))
			}
		}
		return matched()
	case terms.Dictionary:
		rule, ok := ruleValue.(terms.Dictionary)
		if !ok {
			break
		}
		if paramFieldsMatch(prototype, rule) {
			return matched()
		}
		return mismatch("Invalid parameter %d. Rule prototype expected Dictionary with fields %s, got Dictionary with fields %s",
			index, terms.ToPolar(prototype), terms.ToPolar(rule))
	}

	if terms.ValueEqual(prototypeValue, ruleValue) {
		return matched()
	}
	return mismatch("Invalid parameter %d. Rule value %s != prototype value %s",
		index, terms.ToPolar(ruleValue), terms.ToPolar(prototypeValue))
}

// classifyLiteralParam matches a bare rule value (no specializer, or a value
// specializer) against a prototype pattern specializer by the value's
// primitive kind.
func classifyLiteralParam(index int, ruleValue terms.Value, prototype terms.Pattern) (paramMatch, error) {
	switch spec := prototype.(type) {
	case terms.InstancePattern:
		var ok bool
		switch rule := ruleValue.(type) {
		case terms.String:
			ok = spec.Tag == "String"
		case terms.Integer:
			ok = spec.Tag == "Integer"
		case terms.Float:
			ok = spec.Tag == "Float"
		case terms.Boolean:
			ok = spec.Tag == "Boolean"
		case terms.List:
			ok = spec.Tag == "List"
		case terms.Dictionary:
			ok = spec.Tag == "Dictionary" && paramFieldsMatch(spec.Fields, rule)
		default:
			return paramMatch{}, diag.NewOperationalError(
				"Value %s cannot be matched against a pattern specializer.", terms.ToPolar(ruleValue))
		}
		if ok {
			return matched(), nil
		}
		return mismatch("Invalid parameter %d. Rule prototype expected %s, got %s. ",
			index, spec.Tag, terms.ToPolar(ruleValue)), nil

	case terms.DictionaryPattern:
		if rule, ok := ruleValue.(terms.Dictionary); ok {
			if paramFieldsMatch(spec.Fields, rule) {
				return matched(), nil
			}
			return mismatch("Invalid parameter %d. Rule prototype expected Dictionary with fields %s, got dictionary with fields %s.",
				index, terms.ToPolar(spec.Fields), terms.ToPolar(rule)), nil
		}
		return mismatch("Invalid parameter %d. Rule prototype expected Dictionary, got %s.",
			index, terms.ToPolar(ruleValue)), nil
	}

	return mismatch("Invalid parameter %d. Rule prototype expected %s, got %s.",
		index, terms.ToPolar(prototype), terms.ToPolar(ruleValue)), nil
}

// checkParam matches one rule parameter against one prototype parameter.
// The index is 1-based for diagnostics. Every legal shape combination is a
// case here; anything else is a mismatch naming both sides.
func (kb *KnowledgeBase) checkParam(index int, ruleParam, prototypeParam rules.Parameter) (paramMatch, error) {
	_, protoIsVar := prototypeParam.Parameter.Value.(terms.Variable)
	_, ruleIsVar := ruleParam.Parameter.Value.(terms.Variable)

	var protoSpec, ruleSpec terms.Value
	if prototypeParam.Specializer != nil {
		protoSpec = prototypeParam.Specializer.Value
	}
	if ruleParam.Specializer != nil {
		ruleSpec = ruleParam.Specializer.Value
	}
	protoPattern, protoSpecIsPattern := protoSpec.(terms.Pattern)
	rulePattern, ruleSpecIsPattern := ruleSpec.(terms.Pattern)

	switch {
	// Both sides carry pattern specializers.
	case protoIsVar && protoSpecIsPattern && ruleIsVar && ruleSpecIsPattern:
		return kb.checkPatternParam(index, rulePattern, protoPattern)

	// Prototype requires a specializer the rule does not have.
	case protoIsVar && protoSpec != nil && ruleIsVar && ruleSpec == nil:
		return mismatch("Invalid rule parameter %d. Rule prototype expected %s",
			index, prototypeParam.Specializer.ToPolar()), nil

	// Rule carries a value specializer against a prototype pattern.
	case protoIsVar && protoSpecIsPattern && ruleIsVar && ruleSpec != nil:
		return classifyLiteralParam(index, ruleSpec, protoPattern)

	// Rule parameter is a bare literal against a prototype pattern.
	case protoIsVar && protoSpecIsPattern && !ruleIsVar && ruleSpec == nil:
		return classifyLiteralParam(index, ruleParam.Parameter.Value, protoPattern)

	// Prototype has no specializer: wildcard.
	case protoIsVar && protoSpec == nil:
		return matched(), nil

	// Value specializer against value specializer.
	case protoIsVar && protoSpec != nil && ruleIsVar && ruleSpec != nil:
		return checkValueParam(index, ruleSpec, protoSpec), nil

	// Bare literal against a value specializer.
	case protoIsVar && protoSpec != nil && !ruleIsVar && ruleSpec == nil:
		return checkValueParam(index, ruleParam.Parameter.Value, protoSpec), nil

	// Bare literal against bare literal.
	case !protoIsVar && protoSpec == nil && ruleSpec == nil:
		return checkValueParam(index, ruleParam.Parameter.Value, prototypeParam.Parameter.Value), nil
	}

	return mismatch("Invalid parameter %d. Rule parameter %s does not match prototype parameter %s",
		index, ruleParam.ToPolar(), prototypeParam.ToPolar()), nil
}

// ruleParamsMatch matches a whole rule against a prototype: equal arity,
// then every parameter pair positionally. The first failing parameter's
// reason becomes the rule-level failure message.
func (kb *KnowledgeBase) ruleParamsMatch(rule, prototype *rules.Rule) (paramMatch, error) {
	if len(rule.Params) != len(prototype.Params) {
		return mismatch("Different number of parameters. Rule has %d parameter(s) but prototype has %d.",
			len(rule.Params), len(prototype.Params)), nil
	}
	for i := range rule.Params {
		result, err := kb.checkParam(i+1, rule.Params[i], prototype.Params[i])
		if err != nil {
			return paramMatch{}, err
		}
		if !result.ok {
			return result, nil
		}
	}
	return matched(), nil
}
