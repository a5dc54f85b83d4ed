// Package kb implements the knowledge base at the heart of the policy
// engine: registered constants and class hierarchies, loaded sources, the
// global rule set with its prototypes, accumulated resource blocks, and the
// compilation pipeline that ties them together. One knowledge base is
// exclusively owned by one engine instance and mutated by sequential host
// calls; concurrent use is the caller's bug to prevent.
package kb

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fconil/oso/internal/diag"
	"github.com/fconil/oso/internal/resource"
	"github.com/fconil/oso/internal/rules"
	"github.com/fconil/oso/internal/sources"
	"github.com/fconil/oso/internal/terms"
)

// blockPhase tracks the two-phase resource-block lifecycle so block state
// cannot leak across load batches on any success or failure path.
type blockPhase int

const (
	phaseIdle blockPhase = iota
	phaseAccumulating
	phaseRewriting
)

// KnowledgeBase owns all mutable policy-compilation state.
type KnowledgeBase struct {
	logger *zap.Logger

	constants map[terms.Symbol]terms.Term
	// Per-class linearized ancestor chain: class name → ordered instance
	// ids, self-first, most-specific-first.
	mro map[terms.Symbol][]uint64

	rules      map[terms.Symbol]*rules.GenericRule
	prototypes map[terms.Symbol][]*rules.Rule

	sources       *sources.Sources
	loadedFiles   map[string]uint64
	loadedContent map[string]string
	inlineQueries []terms.Term

	blocks *resource.Blocks
	phase  blockPhase

	idCounter counter
}

// New returns an empty knowledge base logging through logger. Pass
// zap.NewNop() for silence.
func New(logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{
		logger:        logger,
		constants:     map[terms.Symbol]terms.Term{},
		mro:           map[terms.Symbol][]uint64{},
		rules:         map[terms.Symbol]*rules.GenericRule{},
		prototypes:    map[terms.Symbol][]*rules.Rule{},
		sources:       sources.New(),
		loadedFiles:   map[string]uint64{},
		loadedContent: map[string]string{},
		blocks:        resource.NewBlocks(),
	}
}

// NewID returns the next monotonically increasing id. Ids wrap at 52 bits so
// they can be coerced to a double without loss.
func (kb *KnowledgeBase) NewID() uint64 {
	return kb.idCounter.Next()
}

// tempPrefix derives a temporary-variable prefix from a variable name.
func tempPrefix(name string) string {
	if name == "_" {
		return name
	}
	return "_" + name + "_"
}

// Gensym returns a fresh symbol with the given prefix. It draws on the same
// counter as NewID, so generated names never collide across kinds.
func (kb *KnowledgeBase) Gensym(prefix string) terms.Symbol {
	return terms.Symbol(fmt.Sprintf("%s%d", tempPrefix(prefix), kb.idCounter.Next()))
}

// RegisterConstant defines a constant name → value binding. Registered
// classes are constants bound to external instances.
func (kb *KnowledgeBase) RegisterConstant(name terms.Symbol, value terms.Term) {
	kb.constants[name] = value
}

// IsConstant reports whether name has been registered as a constant.
func (kb *KnowledgeBase) IsConstant(name terms.Symbol) bool {
	_, ok := kb.constants[name]
	return ok
}

// Constant returns the registered value for name.
func (kb *KnowledgeBase) Constant(name terms.Symbol) (terms.Term, bool) {
	t, ok := kb.constants[name]
	return t, ok
}

// RegisterMRO records the linearized ancestor chain for a registered class.
// The class must already be a registered constant.
func (kb *KnowledgeBase) RegisterMRO(name terms.Symbol, mro []uint64) error {
	if !kb.IsConstant(name) {
		return &diag.ParameterError{Msg: fmt.Sprintf("Cannot add MRO for unregistered class %s", name)}
	}
	kb.mro[name] = mro
	return nil
}

// AddRule appends rule to the generic rule for its name, creating the group
// on first use. Insertion order is preserved via a stable index.
func (kb *KnowledgeBase) AddRule(rule *rules.Rule) {
	group, ok := kb.rules[rule.Name]
	if !ok {
		group = rules.NewGenericRule(rule.Name)
		kb.rules[rule.Name] = group
	}
	group.Add(rule)
	kb.logger.Debug("rule added", zap.String("name", string(rule.Name)), zap.Int("params", len(rule.Params)))
}

// AddRulePrototype registers a prototype. Every later-loaded rule sharing
// its name must match at least one prototype of that name.
func (kb *KnowledgeBase) AddRulePrototype(prototype *rules.Rule) {
	kb.prototypes[prototype.Name] = append(kb.prototypes[prototype.Name], prototype)
}

// GenericRule returns the rule group stored under name.
func (kb *KnowledgeBase) GenericRule(name terms.Symbol) (*rules.GenericRule, bool) {
	g, ok := kb.rules[name]
	return g, ok
}

// RuleNames returns the names of all stored rule groups, sorted.
func (kb *KnowledgeBase) RuleNames() []terms.Symbol {
	names := make([]terms.Symbol, 0, len(kb.rules))
	for name := range kb.rules {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// AddInlineQuery records a query parsed inline in a source. Inline queries
// are pruned when their source is removed.
func (kb *KnowledgeBase) AddInlineQuery(query terms.Term) {
	kb.inlineQueries = append(kb.inlineQueries, query)
}

// InlineQueries returns the recorded inline queries.
func (kb *KnowledgeBase) InlineQueries() []terms.Term {
	return kb.inlineQueries
}

// AddSource registers source text under a fresh source id. Loading the same
// filename+content pair twice, a different filename with identical content,
// or the same filename with different content are each rejected with a
// distinct diagnostic.
func (kb *KnowledgeBase) AddSource(src, filename string) (uint64, error) {
	srcID := kb.NewID()
	if filename != "" {
		if err := kb.checkFile(src, filename); err != nil {
			return 0, err
		}
		kb.loadedContent[src] = filename
		kb.loadedFiles[filename] = srcID
	}
	kb.sources.Add(srcID, sources.Source{Filename: filename, Src: src})
	kb.logger.Debug("source added", zap.Uint64("src_id", srcID), zap.String("filename", filename), zap.Int("bytes", len(src)))
	return srcID, nil
}

func (kb *KnowledgeBase) checkFile(src, filename string) error {
	otherFile, contentLoaded := kb.loadedContent[src]
	_, fileLoaded := kb.loadedFiles[filename]

	switch {
	case contentLoaded && fileLoaded && otherFile == filename:
		return &diag.FileLoadError{Msg: fmt.Sprintf("File %s has already been loaded.", filename)}
	case fileLoaded:
		return &diag.FileLoadError{Msg: fmt.Sprintf(
			"A file with the name %s, but different contents has already been loaded.", filename)}
	case contentLoaded:
		return &diag.FileLoadError{Msg: fmt.Sprintf(
			"A file with the same contents as %s named %s has already been loaded.", filename, otherFile)}
	}
	return nil
}

// Source returns the source registered under id.
func (kb *KnowledgeBase) Source(id uint64) (sources.Source, bool) {
	return kb.sources.Get(id)
}

// RemoveFile removes the source loaded from filename and everything that
// came from it, returning the original source text. The second return is
// false if the file was never loaded.
func (kb *KnowledgeBase) RemoveFile(filename string) (string, bool) {
	srcID, ok := kb.loadedFiles[filename]
	if !ok {
		return "", false
	}
	src, err := kb.RemoveSource(srcID)
	if err != nil {
		return "", false
	}
	return src, true
}

// RemoveSource drops every rule whose provenance points at srcID, pruning
// rule groups that become empty, drops inline queries from that source,
// clears the filename bookkeeping, and returns the original source text.
func (kb *KnowledgeBase) RemoveSource(srcID uint64) (string, error) {
	for name, group := range kb.rules {
		for _, idx := range group.Indices() {
			rule := group.Rules[idx]
			if rule.Span != nil && rule.Span.SrcID == srcID {
				group.Remove(idx)
			}
		}
		if group.IsEmpty() {
			delete(kb.rules, name)
		}
	}

	src, ok := kb.sources.Remove(srcID)
	if !ok {
		return "", diag.NewOperationalError("source %d does not exist in the knowledge base", srcID)
	}

	remaining := kb.inlineQueries[:0]
	for _, q := range kb.inlineQueries {
		if id, ok := q.SourceID(); !ok || id != srcID {
			remaining = append(remaining, q)
		}
	}
	kb.inlineQueries = remaining

	if src.Filename != "" {
		delete(kb.loadedFiles, src.Filename)
		for content, file := range kb.loadedContent {
			if file == src.Filename {
				delete(kb.loadedContent, content)
			}
		}
	}

	kb.logger.Debug("source removed", zap.Uint64("src_id", srcID), zap.String("filename", src.Filename))
	return src.Src, nil
}

// ClearRules resets rules, prototypes, sources, inline queries, and file
// bookkeeping. Constants and MROs persist for the knowledge base's lifetime.
func (kb *KnowledgeBase) ClearRules() {
	kb.rules = map[terms.Symbol]*rules.GenericRule{}
	kb.prototypes = map[terms.Symbol][]*rules.Rule{}
	kb.sources.Clear()
	kb.inlineQueries = nil
	kb.loadedFiles = map[string]uint64{}
	kb.loadedContent = map[string]string{}
}
