// Package terms defines the Polar term model: interned symbols, source-located
// terms, and the closed set of value variants that policy rules are built
// from. Spans attached to terms feed diagnostics only; structural equality
// ignores them.
package terms

// Symbol is an interned name with string-equality semantics.
type Symbol string

// Span locates a term inside a loaded source. SrcID refers to a source
// registered with the knowledge base; Left and Right are byte offsets.
type Span struct {
	SrcID uint64
	Left  int
	Right int
}

// Term is a value plus an optional source span.
type Term struct {
	Value Value
	Span  *Span
}

// New wraps a value in a term with no source information.
func New(v Value) Term {
	return Term{Value: v}
}

// NewParsed wraps a value in a term carrying parser provenance.
func NewParsed(v Value, srcID uint64, left, right int) Term {
	return Term{Value: v, Span: &Span{SrcID: srcID, Left: left, Right: right}}
}

// CloneWith returns a term holding v but keeping the receiver's span, so
// rewritten terms still point at the source text they were derived from.
func (t Term) CloneWith(v Value) Term {
	return Term{Value: v, Span: t.Span}
}

// Offset returns the term's source offset, or 0 for synthesized terms.
func (t Term) Offset() int {
	if t.Span == nil {
		return 0
	}
	return t.Span.Left
}

// SourceID returns the id of the source this term was parsed from and
// whether the term carries provenance at all.
func (t Term) SourceID() (uint64, bool) {
	if t.Span == nil {
		return 0, false
	}
	return t.Span.SrcID, true
}

// Value is the closed variant set of §terms. Every variant implements
// isValue; exhaustive type switches over Value document each legal shape.
type Value interface {
	isValue()
}

// Variable is an unbound name, e.g. `actor` or a resource block's type name.
type Variable Symbol

// Integer is a Polar integer literal.
type Integer int64

// Float is a Polar float literal.
type Float float64

// String is a Polar string literal.
type String string

// Boolean is a Polar boolean literal.
type Boolean bool

// List is an ordered sequence of terms.
type List []Term

// Dictionary maps symbols to terms. Key order is irrelevant; keys are unique.
type Dictionary struct {
	Fields map[Symbol]Term
}

// NewDictionary returns an empty dictionary ready for insertion.
func NewDictionary() Dictionary {
	return Dictionary{Fields: map[Symbol]Term{}}
}

// ExternalInstance references a host-side object by opaque instance id.
// Registered classes are constants bound to external instances.
type ExternalInstance struct {
	InstanceID uint64
	Repr       string
}

// Call is a predicate invocation: name plus ordered arguments.
type Call struct {
	Name Symbol
	Args []Term
}

// Operator enumerates the operation kinds this core emits or inspects.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot
	OpUnify
)

// Operation is an operator applied to ordered argument terms. Rewritten rule
// bodies are always a single OpAnd operation, even for one conjunct.
type Operation struct {
	Operator Operator
	Args     []Term
}

// Pattern is the subset of values legal as a specializer shape: an instance
// pattern (tag plus fields) or a bare dictionary pattern.
type Pattern interface {
	Value
	isPattern()
}

// InstancePattern matches instances of a tagged class with the given fields,
// e.g. `Org{id: 1}`.
type InstancePattern struct {
	Tag    Symbol
	Fields Dictionary
}

// DictionaryPattern matches any value carrying at least the given fields.
type DictionaryPattern struct {
	Fields Dictionary
}

func (Variable) isValue()          {}
func (Integer) isValue()           {}
func (Float) isValue()             {}
func (String) isValue()            {}
func (Boolean) isValue()           {}
func (List) isValue()              {}
func (Dictionary) isValue()        {}
func (ExternalInstance) isValue()  {}
func (Call) isValue()              {}
func (Operation) isValue()         {}
func (InstancePattern) isValue()   {}
func (DictionaryPattern) isValue() {}

func (InstancePattern) isPattern()   {}
func (DictionaryPattern) isPattern() {}

// AsSymbol returns the variable name held by the term, if any. Resource
// block names and relation types parse as variables.
func (t Term) AsSymbol() (Symbol, bool) {
	v, ok := t.Value.(Variable)
	return Symbol(v), ok
}

// AsString returns the string literal held by the term, if any.
func (t Term) AsString() (string, bool) {
	v, ok := t.Value.(String)
	return string(v), ok
}

// AsList returns the list held by the term, if any.
func (t Term) AsList() (List, bool) {
	v, ok := t.Value.(List)
	return v, ok
}

// AsDictionary returns the dictionary held by the term, if any.
func (t Term) AsDictionary() (Dictionary, bool) {
	v, ok := t.Value.(Dictionary)
	return v, ok
}
