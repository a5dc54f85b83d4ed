package kb

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fconil/oso/internal/diag"
	"github.com/fconil/oso/internal/resource"
	"github.com/fconil/oso/internal/rules"
	"github.com/fconil/oso/internal/terms"
)

// AddResourceBlock validates one parsed block and, if it is acceptable,
// accumulates it for the next RewriteImplications call. The block's resource
// must be a registered class and must not have been declared by a previous
// block in this load; implication heads must be declared locally. Impliers
// are validated lazily at rewrite time, permitting forward and cross-block
// references.
func (kb *KnowledgeBase) AddResourceBlock(block *resource.Block) error {
	var errs error

	if err := kb.checkBlockResourceIsRegistered(block.Resource); err != nil {
		errs = multierr.Append(errs, err)
	}
	if kb.blocks.Exists(block.Resource) {
		srcID, _ := block.Resource.SourceID()
		errs = multierr.Append(errs, diag.NewPolicyError(srcID, block.Resource.Offset(),
			"Duplicate declaration of '%s' resource block.", block.Resource.ToPolar()))
	}

	decls, err := resource.IndexDeclarations(block.Roles, block.Permissions, block.Relations, block.Resource)
	if err != nil {
		return multierr.Append(errs, err)
	}

	for _, err := range resource.CheckImplicationHeadsDeclared(block.Implications, decls, block.Resource) {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return errs
	}

	kb.blocks.Add(block.Entity, block.Resource, decls, block.Implications)
	kb.phase = phaseAccumulating
	kb.logger.Debug("resource block accepted",
		zap.String("resource", block.Resource.ToPolar()),
		zap.Int("implications", len(block.Implications)))
	return nil
}

func (kb *KnowledgeBase) checkBlockResourceIsRegistered(res terms.Term) error {
	sym, ok := res.AsSymbol()
	if !ok || !kb.IsConstant(sym) {
		srcID, _ := res.SourceID()
		return diag.NewPolicyError(srcID, res.Offset(),
			"Invalid resource block '%s' -- '%s' must be a registered class.",
			res.ToPolar(), res.ToPolar())
	}
	return nil
}

// checkRelationTypesRegistered verifies every declared relation type across
// all accumulated blocks refers to a registered class, aggregating one error
// per bad relation.
func (kb *KnowledgeBase) checkRelationTypesRegistered() error {
	var errs error
	for _, decl := range kb.blocks.RelationDeclarations() {
		relationType := *decl.RelationType
		sym, ok := relationType.AsSymbol()
		if ok && kb.IsConstant(sym) {
			continue
		}
		name, _ := decl.Name.AsString()
		srcID, _ := decl.Name.SourceID()
		errs = multierr.Append(errs, diag.NewPolicyError(srcID, decl.Name.Offset(),
			"Type '%s' in relation '%s: %s' must be registered as a class.",
			relationType.ToPolar(), name, relationType.ToPolar()))
	}
	return errs
}

// RewriteImplications compiles every implication of every accumulated block
// into a base rule and merges the results into the global rule set. The
// step is all-or-nothing per load: on any failure the rule set is unchanged.
// Accumulated block state is cleared unconditionally on every path so stale
// blocks never survive into the next load.
//
// All collected diagnostics are returned; diag.First recovers the
// single-error view.
func (kb *KnowledgeBase) RewriteImplications() error {
	kb.phase = phaseRewriting
	defer func() {
		kb.blocks.Clear()
		kb.phase = phaseIdle
	}()

	if err := kb.checkRelationTypesRegistered(); err != nil {
		return err
	}

	var errs error
	var rewritten []*rules.Rule
	kb.blocks.Each(func(res terms.Term, implications []resource.Implication) {
		for _, implication := range implications {
			rule, err := implication.AsRule(res, kb.blocks)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			rewritten = append(rewritten, rule)
		}
	})
	if errs != nil {
		return errs
	}

	for _, rule := range rewritten {
		kb.AddRule(rule)
	}
	kb.logger.Debug("implications rewritten", zap.Int("rules", len(rewritten)))
	return nil
}
