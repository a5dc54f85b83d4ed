package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fconil/oso/internal/diag"
	"github.com/fconil/oso/internal/terms"
)

func str(s string) terms.Term       { return terms.New(terms.String(s)) }
func typeName(s string) terms.Term  { return terms.New(terms.Variable(s)) }
func strList(ss ...string) terms.Term {
	list := make(terms.List, len(ss))
	for i, s := range ss {
		list[i] = str(s)
	}
	return terms.New(list)
}

func relationsDict(pairs map[string]string) terms.Term {
	d := terms.NewDictionary()
	for name, typ := range pairs {
		d.Fields[terms.Symbol(name)] = typeName(typ)
	}
	return terms.New(d)
}

func TestIndexDeclarations(t *testing.T) {
	org := typeName("Org")

	t.Run("roles permissions and relations index by name", func(t *testing.T) {
		roles := strList("owner", "member")
		permissions := strList("invite", "create_repo")
		relations := relationsDict(map[string]string{"parent": "Org"})

		decls, err := IndexDeclarations(&roles, &permissions, &relations, typeName("Repo"))
		require.NoError(t, err)
		require.Len(t, decls, 5)

		assert.Equal(t, DeclRole, decls["owner"].Kind)
		assert.Equal(t, terms.Symbol("has_role"), decls["owner"].RuleName())
		assert.Equal(t, DeclPermission, decls["invite"].Kind)
		assert.Equal(t, terms.Symbol("has_permission"), decls["invite"].RuleName())

		parent := decls["parent"]
		assert.Equal(t, DeclRelation, parent.Kind)
		assert.Equal(t, terms.Symbol("has_relation"), parent.RuleName())

		relType, err := parent.AsRelationType()
		require.NoError(t, err)
		assert.Equal(t, "Org", relType.ToPolar())

		// The relation's Name is the stringified key, so implication heads
		// written as strings resolve against it.
		name, ok := parent.Name.AsString()
		require.True(t, ok)
		assert.Equal(t, "parent", name)
	})

	t.Run("all sections are optional", func(t *testing.T) {
		decls, err := IndexDeclarations(nil, nil, nil, org)
		require.NoError(t, err)
		assert.Empty(t, decls)
	})

	t.Run("duplicate role", func(t *testing.T) {
		roles := strList("egg", "egg")
		_, err := IndexDeclarations(&roles, nil, nil, org)
		require.Error(t, err)
		assert.EqualError(t, err, `Org: Duplicate declaration of "egg" in the roles list.`)
	})

	t.Run("duplicate permission", func(t *testing.T) {
		permissions := strList("egg", "egg")
		_, err := IndexDeclarations(nil, &permissions, nil, org)
		require.Error(t, err)
		assert.EqualError(t, err, `Org: Duplicate declaration of "egg" in the permissions list.`)
	})

	t.Run("permission clashing with a role", func(t *testing.T) {
		roles := strList("egg")
		permissions := strList("egg")
		_, err := IndexDeclarations(&roles, &permissions, nil, org)
		require.Error(t, err)
		assert.EqualError(t, err, `Org: "egg" declared as a permission but it was previously declared as a role.`)
	})

	t.Run("relation clashing with a role", func(t *testing.T) {
		roles := strList("egg")
		relations := relationsDict(map[string]string{"egg": "Org"})
		_, err := IndexDeclarations(&roles, nil, &relations, org)
		require.Error(t, err)
		assert.EqualError(t, err, `Org: 'egg' declared as a relation but it was previously declared as a role.`)
	})

	t.Run("relation clashing with a permission", func(t *testing.T) {
		permissions := strList("egg")
		relations := relationsDict(map[string]string{"egg": "Org"})
		_, err := IndexDeclarations(nil, &permissions, &relations, org)
		require.Error(t, err)
		assert.EqualError(t, err, `Org: 'egg' declared as a relation but it was previously declared as a permission.`)
	})

	t.Run("roles must be a list", func(t *testing.T) {
		notAList := relationsDict(map[string]string{"parent": "Org"})
		_, err := IndexDeclarations(&notAList, nil, nil, org)
		require.Error(t, err)
		assert.IsType(t, &diag.TypeError{}, err)
	})
}

func TestAsRelationTypeOnNonRelation(t *testing.T) {
	decl := Declaration{Kind: DeclRole, Name: str("owner")}
	_, err := decl.AsRelationType()
	require.Error(t, err)
	assert.EqualError(t, err, "Expected Relation; got: role")
}

func TestCheckImplicationHeadsDeclared(t *testing.T) {
	roles := strList("member")
	decls, err := IndexDeclarations(&roles, nil, nil, typeName("Org"))
	require.NoError(t, err)

	implications := []Implication{
		{Head: str("member"), Implier: str("owner")},
		{Head: str("admin"), Implier: str("member")},
	}
	errs := CheckImplicationHeadsDeclared(implications, decls, typeName("Org"))
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], `Undeclared term "admin" referenced in rule in 'Org' resource block. Did you mean to declare it as a role, permission, or relation?`)
}
