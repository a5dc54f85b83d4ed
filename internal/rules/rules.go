// Package rules defines Polar rules and the per-name rule groups the
// knowledge base stores them in. Rule prototypes reuse the same Rule type;
// they are never executed, only matched against.
package rules

import (
	"sort"
	"strings"

	"github.com/fconil/oso/internal/terms"
)

// Parameter is a rule head parameter: a term plus an optional specializer
// constraining which values satisfy it.
type Parameter struct {
	Parameter   terms.Term
	Specializer *terms.Term
}

// ToPolar renders the parameter as `param` or `param: specializer`.
func (p Parameter) ToPolar() string {
	if p.Specializer == nil {
		return p.Parameter.ToPolar()
	}
	return p.Parameter.ToPolar() + ": " + p.Specializer.ToPolar()
}

// Rule is a named rule with ordered parameters and a body term. Span carries
// parser provenance and is nil for rules constructed programmatically.
type Rule struct {
	Name   terms.Symbol
	Params []Parameter
	Body   terms.Term
	Span   *terms.Span
}

// New builds a rule with an empty conjunction body.
func New(name terms.Symbol, params ...Parameter) *Rule {
	return &Rule{
		Name:   name,
		Params: params,
		Body:   terms.New(terms.Operation{Operator: terms.OpAnd}),
	}
}

// NewFromParser builds a rule carrying source provenance, used for rules
// produced by parsing or implication rewriting.
func NewFromParser(srcID uint64, left, right int, name terms.Symbol, params []Parameter, body terms.Term) *Rule {
	return &Rule{
		Name:   name,
		Params: params,
		Body:   body,
		Span:   &terms.Span{SrcID: srcID, Left: left, Right: right},
	}
}

// ToPolar renders the rule in Polar concrete syntax. An empty conjunction
// body renders as a bodiless rule, matching how prototypes are written.
func (r *Rule) ToPolar() string {
	params := make([]string, len(r.Params))
	for i, p := range r.Params {
		params[i] = p.ToPolar()
	}
	head := string(r.Name) + "(" + strings.Join(params, ", ") + ")"
	if op, ok := r.Body.Value.(terms.Operation); ok && op.Operator == terms.OpAnd && len(op.Args) == 0 {
		return head + ";"
	}
	return head + " if " + r.Body.ToPolar() + ";"
}

// GenericRule groups every rule sharing one name. Rules are keyed by a
// stable insertion index so later removal by source does not disturb the
// identity of surviving rules.
type GenericRule struct {
	Name  terms.Symbol
	Rules map[uint64]*Rule

	nextIndex uint64
}

// NewGenericRule returns an empty group for name.
func NewGenericRule(name terms.Symbol) *GenericRule {
	return &GenericRule{Name: name, Rules: map[uint64]*Rule{}}
}

// Add appends a rule, assigning the next insertion index.
func (g *GenericRule) Add(r *Rule) uint64 {
	idx := g.nextIndex
	g.nextIndex++
	g.Rules[idx] = r
	return idx
}

// Remove drops the rule stored at idx, if present.
func (g *GenericRule) Remove(idx uint64) {
	delete(g.Rules, idx)
}

// IsEmpty reports whether no rules remain in the group.
func (g *GenericRule) IsEmpty() bool {
	return len(g.Rules) == 0
}

// Indices returns the insertion indices in ascending (insertion) order.
func (g *GenericRule) Indices() []uint64 {
	out := make([]uint64, 0, len(g.Rules))
	for idx := range g.Rules {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
