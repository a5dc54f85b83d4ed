package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fconil/oso/internal/terms"
)

func TestBlocksRegistry(t *testing.T) {
	b := NewBlocks()
	assert.True(t, b.IsEmpty())

	org := typeName("Org")
	orgRoles := strList("member")
	addBlock(t, b, EntityResource, org, &orgRoles, nil, nil, nil)

	repo := typeName("Repo")
	repoRoles := strList("reader")
	relations := relationsDict(map[string]string{"parent": "Org"})
	addBlock(t, b, EntityResource, repo, &repoRoles, nil, &relations, nil)

	assert.False(t, b.IsEmpty())
	assert.True(t, b.Exists(org))
	assert.True(t, b.Exists(repo))
	assert.False(t, b.Exists(typeName("Issue")))

	t.Run("each visits blocks in insertion order", func(t *testing.T) {
		var seen []string
		b.Each(func(resource terms.Term, _ []Implication) {
			seen = append(seen, resource.ToPolar())
		})
		assert.Equal(t, []string{"Org", "Repo"}, seen)
	})

	t.Run("relation declarations across blocks", func(t *testing.T) {
		decls := b.RelationDeclarations()
		require.Len(t, decls, 1)
		relType, err := decls[0].AsRelationType()
		require.NoError(t, err)
		assert.Equal(t, "Org", relType.ToPolar())
	})

	t.Run("rule name lookups", func(t *testing.T) {
		name, err := b.RuleNameFor(str("reader"), repo)
		require.NoError(t, err)
		assert.Equal(t, terms.Symbol("has_role"), name)

		name, err = b.RuleNameForRelated(str("member"), str("parent"), repo)
		require.NoError(t, err)
		assert.Equal(t, terms.Symbol("has_role"), name)
	})

	t.Run("clear drops everything", func(t *testing.T) {
		b.Clear()
		assert.True(t, b.IsEmpty())
		assert.False(t, b.Exists(org))
		assert.Empty(t, b.RelationDeclarations())
	})
}
