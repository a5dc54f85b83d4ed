package resource

import (
	"sort"

	"github.com/fconil/oso/internal/diag"
	"github.com/fconil/oso/internal/terms"
)

// Blocks is the registry of accepted resource blocks for the current load
// batch. It is filled while blocks are parsed, consumed exactly once by the
// implication rewriter, and then cleared whether rewriting succeeded or not.
type Blocks struct {
	order     []string
	entries   map[string]*blockEntry
	actors    map[string]struct{}
	resources map[string]struct{}
}

type blockEntry struct {
	resource     terms.Term
	declarations Declarations
	implications []Implication
}

// NewBlocks returns an empty registry.
func NewBlocks() *Blocks {
	b := &Blocks{}
	b.Clear()
	return b
}

// Clear drops all accumulated block state.
func (b *Blocks) Clear() {
	b.order = nil
	b.entries = map[string]*blockEntry{}
	b.actors = map[string]struct{}{}
	b.resources = map[string]struct{}{}
}

// IsEmpty reports whether no blocks have been accumulated.
func (b *Blocks) IsEmpty() bool {
	return len(b.entries) == 0
}

func resourceKey(resource terms.Term) string {
	if sym, ok := resource.AsSymbol(); ok {
		return string(sym)
	}
	return resource.ToPolar()
}

// Exists reports whether a block for resource has already been accepted.
func (b *Blocks) Exists(resource terms.Term) bool {
	_, ok := b.entries[resourceKey(resource)]
	return ok
}

// Add accepts one indexed block into the registry.
func (b *Blocks) Add(entity EntityType, resource terms.Term, decls Declarations, implications []Implication) {
	key := resourceKey(resource)
	b.order = append(b.order, key)
	b.entries[key] = &blockEntry{resource: resource, declarations: decls, implications: implications}
	switch entity {
	case EntityActor:
		b.actors[key] = struct{}{}
	case EntityResource:
		b.resources[key] = struct{}{}
	}
}

// Each visits accepted blocks in insertion order.
func (b *Blocks) Each(visit func(resource terms.Term, implications []Implication)) {
	for _, key := range b.order {
		entry := b.entries[key]
		visit(entry.resource, entry.implications)
	}
}

// RelationDeclarations returns every relation declaration across all
// accumulated blocks, in block insertion order (relation names sorted
// within a block).
func (b *Blocks) RelationDeclarations() []Declaration {
	var out []Declaration
	for _, key := range b.order {
		entry := b.entries[key]
		names := make([]string, 0, len(entry.declarations))
		for name := range entry.declarations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if decl := entry.declarations[name]; decl.Kind == DeclRelation {
				out = append(out, decl)
			}
		}
	}
	return out
}

// DeclarationIn looks up declaration (a string term) in the resource block.
// The block must exist; a missing declaration is a policy error pointing at
// the referencing term.
func (b *Blocks) DeclarationIn(declaration, resource terms.Term) (Declaration, error) {
	entry := b.entries[resourceKey(resource)]
	if entry != nil {
		if decl, ok := entry.declarations[declKey(declaration)]; ok {
			return decl, nil
		}
	}
	srcID, _ := declaration.SourceID()
	return Declaration{}, diag.NewPolicyError(srcID, declaration.Offset(),
		"Undeclared term %s referenced in rule in the '%s' resource block. Did you mean to declare it as a role, permission, or relation?",
		declaration.ToPolar(), resource.ToPolar())
}

// RelationTypeIn looks up relation in the resource block and returns its
// declared type.
func (b *Blocks) RelationTypeIn(relation, resource terms.Term) (terms.Term, error) {
	decl, err := b.DeclarationIn(relation, resource)
	if err != nil {
		return terms.Term{}, err
	}
	return decl.AsRelationType()
}

// RuleNameFor resolves the generated predicate name for a declaration
// referenced in its own block.
func (b *Blocks) RuleNameFor(declaration, resource terms.Term) (terms.Symbol, error) {
	decl, err := b.DeclarationIn(declaration, resource)
	if err != nil {
		return "", err
	}
	return decl.RuleName(), nil
}

// RuleNameForRelated traverses from resource via relation to the related
// block, then resolves the predicate name for declaration there. A missing
// related block and a missing declaration in it are distinct errors.
func (b *Blocks) RuleNameForRelated(declaration, relation, resource terms.Term) (terms.Symbol, error) {
	relatedType, err := b.RelationTypeIn(relation, resource)
	if err != nil {
		return "", err
	}

	related := b.entries[resourceKey(relatedType)]
	if related == nil {
		srcID, _ := relatedType.SourceID()
		return "", diag.NewPolicyError(srcID, relatedType.Offset(),
			"%s: Relation %s in rule body `%s on %s` has type '%s', but no such resource block exists. Try declaring one: `resource %s {}`",
			resource.ToPolar(), relation.ToPolar(), declaration.ToPolar(), relation.ToPolar(),
			relatedType.ToPolar(), relatedType.ToPolar())
	}

	decl, ok := related.declarations[declKey(declaration)]
	if !ok {
		srcID, _ := declaration.SourceID()
		return "", diag.NewPolicyError(srcID, declaration.Offset(),
			"%s: Term %s not declared in related resource block '%s'. Did you mean to declare it as a role, permission, or relation in the '%s' resource block?",
			resource.ToPolar(), declaration.ToPolar(), relatedType.ToPolar(), relatedType.ToPolar())
	}
	return decl.RuleName(), nil
}
