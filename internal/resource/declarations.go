// Package resource implements the declarative policy surface: actor and
// resource blocks with role/permission/relation declarations and the
// shorthand implications that compile down to has_role/has_permission/
// has_relation rules.
package resource

import (
	"fmt"
	"sort"

	"github.com/fconil/oso/internal/diag"
	"github.com/fconil/oso/internal/terms"
)

// DeclarationKind is the category a name was declared under within one
// resource block. The category decides the predicate name an implication
// referencing it rewrites to.
type DeclarationKind int

const (
	DeclRole DeclarationKind = iota
	DeclPermission
	DeclRelation
)

func (k DeclarationKind) String() string {
	switch k {
	case DeclRole:
		return "role"
	case DeclPermission:
		return "permission"
	case DeclRelation:
		return "relation"
	}
	return "unknown"
}

// Declaration is one declared name inside a resource block. Name is the
// declared name as a string term; RelationType is set for relations only
// and holds the declared type, e.g. `Org` in `parent: Org`.
type Declaration struct {
	Kind         DeclarationKind
	Name         terms.Term
	RelationType *terms.Term
}

// RuleName maps the declaration category to the generated predicate name.
func (d Declaration) RuleName() terms.Symbol {
	switch d.Kind {
	case DeclRole:
		return "has_role"
	case DeclPermission:
		return "has_permission"
	default:
		return "has_relation"
	}
}

// AsRelationType returns the declared relation type, or a TypeError if the
// declaration is not a relation.
func (d Declaration) AsRelationType() (terms.Term, error) {
	if d.Kind != DeclRelation || d.RelationType == nil {
		return terms.Term{}, &diag.TypeError{Msg: fmt.Sprintf("Expected Relation; got: %s", d.Kind)}
	}
	return *d.RelationType, nil
}

// Declarations indexes the declared names of one resource block by their
// string value, so implication lookups by string succeed for relations too.
type Declarations map[string]Declaration

// declKey is the lookup key for a declared or referenced name term.
func declKey(t terms.Term) string {
	if s, ok := t.AsString(); ok {
		return s
	}
	return t.ToPolar()
}

// IndexDeclarations builds the name→declaration map for one resource block
// from its optional roles, permissions, and relations terms, rejecting
// duplicates and cross-category clashes.
func IndexDeclarations(roles, permissions, relations *terms.Term, resource terms.Term) (Declarations, error) {
	decls := Declarations{}

	if roles != nil {
		list, ok := roles.AsList()
		if !ok {
			return nil, &diag.TypeError{Msg: fmt.Sprintf("Expected list; got: %s", roles.ToPolar())}
		}
		for _, role := range list {
			if _, dup := decls[declKey(role)]; dup {
				srcID, _ := role.SourceID()
				return nil, diag.NewPolicyError(srcID, role.Offset(),
					"%s: Duplicate declaration of %s in the roles list.",
					resource.ToPolar(), role.ToPolar())
			}
			decls[declKey(role)] = Declaration{Kind: DeclRole, Name: role}
		}
	}

	if permissions != nil {
		list, ok := permissions.AsList()
		if !ok {
			return nil, &diag.TypeError{Msg: fmt.Sprintf("Expected list; got: %s", permissions.ToPolar())}
		}
		for _, permission := range list {
			if previous, dup := decls[declKey(permission)]; dup {
				srcID, _ := permission.SourceID()
				if previous.Kind == DeclPermission {
					return nil, diag.NewPolicyError(srcID, permission.Offset(),
						"%s: Duplicate declaration of %s in the permissions list.",
						resource.ToPolar(), permission.ToPolar())
				}
				return nil, diag.NewPolicyError(srcID, permission.Offset(),
					"%s: %s declared as a permission but it was previously declared as a role.",
					resource.ToPolar(), permission.ToPolar())
			}
			decls[declKey(permission)] = Declaration{Kind: DeclPermission, Name: permission}
		}
	}

	if relations != nil {
		dict, ok := relations.AsDictionary()
		if !ok {
			return nil, &diag.TypeError{Msg: fmt.Sprintf("Expected dictionary; got: %s", relations.ToPolar())}
		}
		for _, relation := range sortedKeys(dict) {
			relationType := dict.Fields[relation]
			// Store the relation under a string-valued copy of its key so
			// that `"admin" if "creator";` can look up what `"creator"` was
			// declared as.
			stringified := relationType.CloneWith(terms.String(relation))
			if previous, dup := decls[string(relation)]; dup {
				srcID, _ := relationType.SourceID()
				return nil, diag.NewPolicyError(srcID, relationType.Offset(),
					"%s: '%s' declared as a relation but it was previously declared as a %s.",
					resource.ToPolar(), relation, previous.Kind)
			}
			rt := relationType
			decls[string(relation)] = Declaration{Kind: DeclRelation, Name: stringified, RelationType: &rt}
		}
	}

	return decls, nil
}

func sortedKeys(d terms.Dictionary) []terms.Symbol {
	keys := make([]terms.Symbol, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// CheckImplicationHeadsDeclared verifies every implication head is declared
// in the same block, returning one error per undeclared head.
func CheckImplicationHeadsDeclared(implications []Implication, decls Declarations, resource terms.Term) []error {
	var errs []error
	for _, impl := range implications {
		if _, ok := decls[declKey(impl.Head)]; !ok {
			srcID, _ := impl.Head.SourceID()
			errs = append(errs, diag.NewPolicyError(srcID, impl.Head.Offset(),
				"Undeclared term %s referenced in rule in '%s' resource block. Did you mean to declare it as a role, permission, or relation?",
				impl.Head.ToPolar(), resource.ToPolar()))
		}
	}
	return errs
}
