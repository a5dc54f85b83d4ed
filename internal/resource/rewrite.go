package resource

import (
	"strings"

	"github.com/fconil/oso/internal/rules"
	"github.com/fconil/oso/internal/terms"
)

// resourceAsVar derives the bare variable name for a resource type: the
// lowercased type name, with `_instance` appended only when lowercasing
// changed nothing, so the variable never shadows an already-lowercase type.
func resourceAsVar(resource terms.Term) terms.Value {
	name := resourceKey(resource)
	lowered := strings.ToLower(name)
	if lowered == name {
		lowered += "_instance"
	}
	return terms.Variable(lowered)
}

// AsRule compiles the implication into a concrete rule for the given
// resource block. The rule name comes from the declared category of the
// head; provenance is copied from the head term.
func (i Implication) AsRule(resource terms.Term, blocks *Blocks) (*rules.Rule, error) {
	var srcID uint64
	var left, right int
	if i.Head.Span != nil {
		srcID = i.Head.Span.SrcID
		left = i.Head.Span.Left
		right = i.Head.Span.Right
	}

	name, err := blocks.RuleNameFor(i.Head, resource)
	if err != nil {
		return nil, err
	}
	params := implicationHeadToParams(i.Head, resource)
	body, err := i.bodyToRuleBody(resource, blocks)
	if err != nil {
		return nil, err
	}
	return rules.NewFromParser(srcID, left, right, name, params, body), nil
}

// implicationHeadToParams builds the fixed three-parameter head: an actor
// specialized on the built-in Actor pattern, the head string itself, and a
// resource-typed variable specialized on the resource's registered type.
func implicationHeadToParams(head, resource terms.Term) []rules.Parameter {
	resourceName, _ := resource.AsSymbol()

	actorSpec := head.CloneWith(terms.InstancePattern{Tag: "Actor"})
	resourceSpec := resource.CloneWith(terms.InstancePattern{Tag: resourceName})

	return []rules.Parameter{
		{
			Parameter:   head.CloneWith(terms.Variable("actor")),
			Specializer: &actorSpec,
		},
		{
			Parameter: head,
		},
		{
			Parameter:   head.CloneWith(resourceAsVar(resource)),
			Specializer: &resourceSpec,
		},
	}
}

// bodyToRuleBody compiles the implication body into an And-wrapped call (for
// a local implication) or a has_relation + implier call pair (for a
// cross-resource implication).
func (i Implication) bodyToRuleBody(resource terms.Term, blocks *Blocks) (terms.Term, error) {
	// Variable derived from the current block's resource name: in the `Repo`
	// block the shared resource variable is `repo`.
	resourceVar := i.Implier.CloneWith(resourceAsVar(resource))
	actorVar := i.Implier.CloneWith(terms.Variable("actor"))

	if i.Relation != nil {
		relation := *i.Relation

		// The rewritten relation and implier calls share a variable named
		// after the relation's declared type: `parent: Org` yields `org`.
		relationType, err := blocks.RelationTypeIn(relation, resource)
		if err != nil {
			return terms.Term{}, err
		}
		relationTypeVar := relation.CloneWith(resourceAsVar(relationType))

		relationCall := relation.CloneWith(terms.Call{
			Name: "has_relation",
			Args: []terms.Term{relationTypeVar, relation, resourceVar},
		})

		// The implier's category is resolved in the related block, not the
		// current one.
		implierName, err := blocks.RuleNameForRelated(i.Implier, relation, resource)
		if err != nil {
			return terms.Term{}, err
		}
		implierCall := i.Implier.CloneWith(terms.Call{
			Name: implierName,
			Args: []terms.Term{actorVar, i.Implier, relationTypeVar},
		})

		return i.Implier.CloneWith(terms.Operation{
			Operator: terms.OpAnd,
			Args:     []terms.Term{relationCall, implierCall},
		}), nil
	}

	implierName, err := blocks.RuleNameFor(i.Implier, resource)
	if err != nil {
		return terms.Term{}, err
	}
	implierCall := i.Implier.CloneWith(terms.Call{
		Name: implierName,
		Args: []terms.Term{actorVar, i.Implier, resourceVar},
	})

	// Wrapped in a conjunction even for one call, for uniform handling
	// downstream.
	return i.Implier.CloneWith(terms.Operation{
		Operator: terms.OpAnd,
		Args:     []terms.Term{implierCall},
	}), nil
}
