package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fconil/oso/internal/terms"
)

// addBlock indexes one block's declarations and accepts it into the registry,
// failing the test on any declaration error.
func addBlock(t *testing.T, b *Blocks, entity EntityType, resource terms.Term, roles, permissions, relations *terms.Term, implications []Implication) {
	t.Helper()
	decls, err := IndexDeclarations(roles, permissions, relations, resource)
	require.NoError(t, err)
	b.Add(entity, resource, decls, implications)
}

func TestImplicationAsRuleLocal(t *testing.T) {
	b := NewBlocks()
	org := typeName("Org")
	roles := strList("owner", "member")
	impl := Implication{Head: str("member"), Implier: str("owner")}
	addBlock(t, b, EntityResource, org, &roles, nil, nil, []Implication{impl})

	rule, err := impl.AsRule(org, b)
	require.NoError(t, err)
	assert.Equal(t,
		`has_role(actor: Actor{}, "member", org: Org{}) if has_role(actor, "owner", org);`,
		rule.ToPolar())
}

func TestImplicationAsRulePermissionHead(t *testing.T) {
	b := NewBlocks()
	org := typeName("Org")
	roles := strList("member")
	permissions := strList("invite")
	impl := Implication{Head: str("invite"), Implier: str("member")}
	addBlock(t, b, EntityResource, org, &roles, &permissions, nil, []Implication{impl})

	rule, err := impl.AsRule(org, b)
	require.NoError(t, err)
	assert.Equal(t,
		`has_permission(actor: Actor{}, "invite", org: Org{}) if has_role(actor, "member", org);`,
		rule.ToPolar())
}

func TestImplicationAsRuleCrossBlock(t *testing.T) {
	b := NewBlocks()

	org := typeName("Org")
	orgRoles := strList("member")
	addBlock(t, b, EntityResource, org, &orgRoles, nil, nil, nil)

	repo := typeName("Repo")
	repoRoles := strList("reader")
	relations := relationsDict(map[string]string{"parent": "Org"})
	relation := str("parent")
	impl := Implication{Head: str("reader"), Implier: str("member"), Relation: &relation}
	addBlock(t, b, EntityResource, repo, &repoRoles, nil, &relations, []Implication{impl})

	rule, err := impl.AsRule(repo, b)
	require.NoError(t, err)
	assert.Equal(t,
		`has_role(actor: Actor{}, "reader", repo: Repo{}) if has_relation(org, "parent", repo) and has_role(actor, "member", org);`,
		rule.ToPolar())
}

func TestImplicationAsRuleLowercaseResource(t *testing.T) {
	b := NewBlocks()
	repo := typeName("repo")
	roles := strList("reader", "writer")
	impl := Implication{Head: str("reader"), Implier: str("writer")}
	addBlock(t, b, EntityResource, repo, &roles, nil, nil, []Implication{impl})

	rule, err := impl.AsRule(repo, b)
	require.NoError(t, err)
	assert.Equal(t,
		`has_role(actor: Actor{}, "reader", repo_instance: repo{}) if has_role(actor, "writer", repo_instance);`,
		rule.ToPolar())
}

func TestImplicationAsRuleErrors(t *testing.T) {
	t.Run("relation traversal to a missing block", func(t *testing.T) {
		b := NewBlocks()
		repo := typeName("Repo")
		roles := strList("reader")
		relations := relationsDict(map[string]string{"parent": "Org"})
		relation := str("parent")
		impl := Implication{Head: str("reader"), Implier: str("member"), Relation: &relation}
		addBlock(t, b, EntityResource, repo, &roles, nil, &relations, []Implication{impl})

		_, err := impl.AsRule(repo, b)
		require.Error(t, err)
		assert.EqualError(t, err,
			"Repo: Relation \"parent\" in rule body `\"member\" on \"parent\"` has type 'Org', but no such resource block exists. Try declaring one: `resource Org {}`")
	})

	t.Run("implier undeclared in the related block", func(t *testing.T) {
		b := NewBlocks()

		org := typeName("Org")
		orgRoles := strList("owner")
		addBlock(t, b, EntityResource, org, &orgRoles, nil, nil, nil)

		repo := typeName("Repo")
		roles := strList("reader")
		relations := relationsDict(map[string]string{"parent": "Org"})
		relation := str("parent")
		impl := Implication{Head: str("reader"), Implier: str("member"), Relation: &relation}
		addBlock(t, b, EntityResource, repo, &roles, nil, &relations, []Implication{impl})

		_, err := impl.AsRule(repo, b)
		require.Error(t, err)
		assert.EqualError(t, err,
			`Repo: Term "member" not declared in related resource block 'Org'. Did you mean to declare it as a role, permission, or relation in the 'Org' resource block?`)
	})

	t.Run("undeclared implier in the same block", func(t *testing.T) {
		b := NewBlocks()
		org := typeName("Org")
		roles := strList("member")
		impl := Implication{Head: str("member"), Implier: str("owner")}
		addBlock(t, b, EntityResource, org, &roles, nil, nil, []Implication{impl})

		_, err := impl.AsRule(org, b)
		require.Error(t, err)
		assert.EqualError(t, err,
			`Undeclared term "owner" referenced in rule in the 'Org' resource block. Did you mean to declare it as a role, permission, or relation?`)
	})

	t.Run("relation used on a non-relation declaration", func(t *testing.T) {
		b := NewBlocks()
		repo := typeName("Repo")
		roles := strList("reader", "parent")
		relation := str("parent")
		impl := Implication{Head: str("reader"), Implier: str("member"), Relation: &relation}
		addBlock(t, b, EntityResource, repo, &roles, nil, nil, []Implication{impl})

		_, err := impl.AsRule(repo, b)
		require.Error(t, err)
		assert.EqualError(t, err, "Expected Relation; got: role")
	})
}
