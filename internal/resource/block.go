package resource

import (
	"github.com/fconil/oso/internal/diag"
	"github.com/fconil/oso/internal/terms"
)

// EntityType distinguishes actor blocks from resource blocks.
type EntityType int

const (
	EntityActor EntityType = iota
	EntityResource
)

// Implication is the shorthand `"head" if "implier" [on "relation"];`.
// Head and Implier are string terms; Relation is nil for local implications.
type Implication struct {
	Head     terms.Term
	Implier  terms.Term
	Relation *terms.Term
}

// Block is one parsed actor/resource block before it is indexed into the
// global registry. Roles, Permissions, and Relations are the raw declared
// terms (list, list, dictionary), nil when absent.
type Block struct {
	Entity       EntityType
	Resource     terms.Term
	Roles        *terms.Term
	Permissions  *terms.Term
	Relations    *terms.Term
	Implications []Implication
}

// Production is one validated line of a resource block, the bridge between
// the grammar and block assembly.
type Production interface {
	isProduction()
}

// RolesProduction is a `roles = [...];` line.
type RolesProduction struct{ Term terms.Term }

// PermissionsProduction is a `permissions = [...];` line.
type PermissionsProduction struct{ Term terms.Term }

// RelationsProduction is a `relations = {...};` line.
type RelationsProduction struct{ Term terms.Term }

// ImplicationProduction is a `"head" if "implier" [on "relation"];` line.
type ImplicationProduction struct{ Implication Implication }

func (RolesProduction) isProduction()       {}
func (PermissionsProduction) isProduction() {}
func (RelationsProduction) isProduction()   {}
func (ImplicationProduction) isProduction() {}

func termRange(t terms.Term) diag.Range {
	if t.Span == nil {
		return diag.Range{}
	}
	return diag.Range{Start: t.Span.Left, End: t.Span.Right}
}

// ValidateRelationKeyword checks the keyword between a relation implier and
// its relation name, which must be exactly `on`.
func ValidateRelationKeyword(keyword, relation terms.Term) (terms.Term, error) {
	if sym, ok := keyword.AsSymbol(); ok && sym == "on" {
		return relation, nil
	}
	srcID, _ := keyword.SourceID()
	return terms.Term{}, diag.NewPolicyError(srcID, keyword.Offset(),
		"Unexpected relation keyword '%s'. Did you mean 'on'?", keyword.ToPolar())
}

// ValidateParsedDeclaration classifies a `name = term;` line inside a block
// into a production, rejecting wrong declaration shapes with did-you-mean
// messages.
func ValidateParsedDeclaration(name terms.Symbol, term terms.Term) (Production, error) {
	srcID, _ := term.SourceID()
	loc := term.Offset()

	switch term.Value.(type) {
	case terms.List:
		switch name {
		case "roles":
			return RolesProduction{Term: term}, nil
		case "permissions":
			return PermissionsProduction{Term: term}, nil
		case "relations":
			err := diag.NewPolicyError(srcID, loc,
				"Expected 'relations' declaration to be a dictionary; found a list:\n")
			err.Ranges = []diag.Range{termRange(term)}
			return nil, err
		default:
			err := diag.NewPolicyError(srcID, loc,
				"Unexpected declaration '%s'. Did you mean for this to be 'roles = [ ... ];' or 'permissions = [ ... ];'?\n", name)
			err.Ranges = []diag.Range{termRange(term)}
			return nil, err
		}
	case terms.Dictionary:
		switch name {
		case "relations":
			return RelationsProduction{Term: term}, nil
		case "roles", "permissions":
			err := diag.NewPolicyError(srcID, loc,
				"Expected '%s' declaration to be a list of strings; found a dictionary:\n", name)
			err.Ranges = []diag.Range{termRange(term)}
			return nil, err
		default:
			err := diag.NewPolicyError(srcID, loc,
				"Unexpected declaration '%s'. Did you mean for this to be 'relations = { ... };'?\n", name)
			err.Ranges = []diag.Range{termRange(term)}
			return nil, err
		}
	}
	return nil, diag.NewPolicyError(srcID, loc,
		"Unexpected declaration '%s'.", name)
}

// BlockFromProductions assembles the validated lines of one block, checking
// the entity keyword and rejecting repeated roles/permissions/relations
// declarations.
func BlockFromProductions(keyword *terms.Term, resource terms.Term, productions []Production) (*Block, error) {
	if keyword == nil {
		srcID, _ := resource.SourceID()
		return nil, diag.NewPolicyError(srcID, resource.Offset(),
			"Expected 'actor' or 'resource' but found nothing.")
	}

	var entity EntityType
	switch sym, _ := keyword.AsSymbol(); sym {
	case "actor":
		entity = EntityActor
	case "resource":
		entity = EntityResource
	default:
		srcID, _ := keyword.SourceID()
		return nil, diag.NewPolicyError(srcID, keyword.Offset(),
			"Expected 'actor' or 'resource' but found '%s'.", keyword.ToPolar())
	}

	block := &Block{Entity: entity, Resource: resource}

	duplicate := func(name string, previous, next terms.Term) error {
		srcID, _ := next.SourceID()
		err := diag.NewPolicyError(srcID, next.Offset(),
			"Multiple '%s' declarations in '%s' resource block.\n", name, resource.ToPolar())
		err.Ranges = []diag.Range{termRange(previous), termRange(next)}
		return err
	}

	for _, production := range productions {
		switch p := production.(type) {
		case RolesProduction:
			if block.Roles != nil {
				return nil, duplicate("roles", *block.Roles, p.Term)
			}
			t := p.Term
			block.Roles = &t
		case PermissionsProduction:
			if block.Permissions != nil {
				return nil, duplicate("permissions", *block.Permissions, p.Term)
			}
			t := p.Term
			block.Permissions = &t
		case RelationsProduction:
			if block.Relations != nil {
				return nil, duplicate("relations", *block.Relations, p.Term)
			}
			t := p.Term
			block.Relations = &t
		case ImplicationProduction:
			block.Implications = append(block.Implications, p.Implication)
		}
	}

	return block, nil
}
