// Package polar is the host-facing surface of the policy engine core. It
// wraps the internal knowledge base and re-exports the term and rule types a
// host needs to register classes, load rules and resource blocks, and run
// the compile/validate pipeline, without reaching into internal packages.
package polar

import (
	"go.uber.org/zap"

	"github.com/fconil/oso/internal/kb"
	"github.com/fconil/oso/internal/resource"
	"github.com/fconil/oso/internal/rules"
	"github.com/fconil/oso/internal/terms"
)

// Term model re-exports.
type (
	Symbol            = terms.Symbol
	Term              = terms.Term
	Value             = terms.Value
	Span              = terms.Span
	Variable          = terms.Variable
	Integer           = terms.Integer
	Float             = terms.Float
	String            = terms.String
	Boolean           = terms.Boolean
	List              = terms.List
	Dictionary        = terms.Dictionary
	ExternalInstance  = terms.ExternalInstance
	Call              = terms.Call
	Operation         = terms.Operation
	Pattern           = terms.Pattern
	InstancePattern   = terms.InstancePattern
	DictionaryPattern = terms.DictionaryPattern
)

// Rule model re-exports.
type (
	Rule      = rules.Rule
	Parameter = rules.Parameter
)

// Resource block surface re-exports, consumed by the parser layer.
type (
	Block                 = resource.Block
	Implication           = resource.Implication
	Production            = resource.Production
	RolesProduction       = resource.RolesProduction
	PermissionsProduction = resource.PermissionsProduction
	RelationsProduction   = resource.RelationsProduction
	ImplicationProduction = resource.ImplicationProduction
	EntityType            = resource.EntityType
)

const (
	EntityActor    = resource.EntityActor
	EntityResource = resource.EntityResource
)

var (
	NewTerm                   = terms.New
	NewParsedTerm             = terms.NewParsed
	NewRule                   = rules.New
	NewRuleFromParser         = rules.NewFromParser
	ValidateRelationKeyword   = resource.ValidateRelationKeyword
	ValidateParsedDeclaration = resource.ValidateParsedDeclaration
	BlockFromProductions      = resource.BlockFromProductions
)

// Polar is one policy engine core instance. It is exclusively owned by its
// creator and must not be shared across goroutines without external
// serialization; every operation runs to completion before returning.
type Polar struct {
	kb *kb.KnowledgeBase
}

// Option configures a Polar instance.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger routes the core's debug logging through logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New returns an empty policy engine core.
func New(opts ...Option) *Polar {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Polar{kb: kb.New(o.logger)}
}

// NewID hands out the next host-visible id, used to mint instance ids for
// registered classes. Ids stay below 2^52 so they survive a round trip
// through a double.
func (p *Polar) NewID() uint64 {
	return p.kb.NewID()
}

// RegisterConstant binds name to value. Registering a class means binding
// its name to an ExternalInstance term.
func (p *Polar) RegisterConstant(name Symbol, value Term) {
	p.kb.RegisterConstant(name, value)
}

// RegisterMRO records the linearized ancestor chain for a registered class:
// ordered instance ids, self-first, most-specific-first. Fails if name is
// not a registered constant.
func (p *Polar) RegisterMRO(name Symbol, mro []uint64) error {
	return p.kb.RegisterMRO(name, mro)
}

// IsConstant reports whether name is registered.
func (p *Polar) IsConstant(name Symbol) bool {
	return p.kb.IsConstant(name)
}

// AddSource registers policy text under a fresh source id, enforcing the
// duplicate-load rules for named files.
func (p *Polar) AddSource(src, filename string) (uint64, error) {
	return p.kb.AddSource(src, filename)
}

// RemoveFile removes a loaded file and everything compiled from it,
// returning the original source text.
func (p *Polar) RemoveFile(filename string) (string, bool) {
	return p.kb.RemoveFile(filename)
}

// RemoveSource removes a loaded source by id, returning its text.
func (p *Polar) RemoveSource(srcID uint64) (string, error) {
	return p.kb.RemoveSource(srcID)
}

// AddRule appends a rule to the knowledge base.
func (p *Polar) AddRule(rule *Rule) {
	p.kb.AddRule(rule)
}

// AddRulePrototype registers a structural constraint: every rule sharing the
// prototype's name must match at least one prototype of that name.
func (p *Polar) AddRulePrototype(prototype *Rule) {
	p.kb.AddRulePrototype(prototype)
}

// AddResourceBlock validates and accumulates one actor/resource block for
// the next RewriteImplications call.
func (p *Polar) AddResourceBlock(block *Block) error {
	return p.kb.AddResourceBlock(block)
}

// RewriteImplications compiles every accumulated block's implications into
// base rules, merging them into the rule set on full success. Block state is
// cleared on every path.
func (p *Polar) RewriteImplications() error {
	return p.kb.RewriteImplications()
}

// ValidateRules checks all loaded and generated rules against registered
// prototypes. Run after RewriteImplications.
func (p *Polar) ValidateRules() error {
	return p.kb.ValidateRules()
}

// ClearRules resets rules, prototypes, sources, and file bookkeeping while
// keeping registered constants and MROs.
func (p *Polar) ClearRules() {
	p.kb.ClearRules()
}

// Rules returns the concrete rules stored under name, in insertion order.
func (p *Polar) Rules(name Symbol) []*Rule {
	group, ok := p.kb.GenericRule(name)
	if !ok {
		return nil
	}
	out := make([]*Rule, 0, len(group.Rules))
	for _, idx := range group.Indices() {
		out = append(out, group.Rules[idx])
	}
	return out
}

// RuleNames returns all rule names with at least one stored rule, sorted.
func (p *Polar) RuleNames() []Symbol {
	return p.kb.RuleNames()
}
