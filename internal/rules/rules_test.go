package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fconil/oso/internal/terms"
)

func param(name string) Parameter {
	return Parameter{Parameter: terms.New(terms.Variable(name))}
}

func specialized(name, tag string) Parameter {
	spec := terms.New(terms.InstancePattern{Tag: terms.Symbol(tag)})
	return Parameter{Parameter: terms.New(terms.Variable(name)), Specializer: &spec}
}

func TestRuleToPolar(t *testing.T) {
	t.Run("bodiless rule renders as fact", func(t *testing.T) {
		r := New("allow", param("actor"), param("action"), param("resource"))
		assert.Equal(t, "allow(actor, action, resource);", r.ToPolar())
	})

	t.Run("specializers render after a colon", func(t *testing.T) {
		r := New("has_role", specialized("actor", "Actor"), param("name"), specialized("org", "Org"))
		assert.Equal(t, "has_role(actor: Actor{}, name, org: Org{});", r.ToPolar())
	})

	t.Run("body renders after if", func(t *testing.T) {
		body := terms.New(terms.Operation{Operator: terms.OpAnd, Args: []terms.Term{
			terms.New(terms.Call{Name: "has_role", Args: []terms.Term{
				terms.New(terms.Variable("actor")),
				terms.New(terms.String("owner")),
				terms.New(terms.Variable("org")),
			}}),
		}})
		r := NewFromParser(1, 0, 10, "has_role", []Parameter{param("actor"), param("name"), param("org")}, body)
		assert.Equal(t, `has_role(actor, name, org) if has_role(actor, "owner", org);`, r.ToPolar())
	})
}

func TestGenericRuleIndices(t *testing.T) {
	g := NewGenericRule("allow")
	require.True(t, g.IsEmpty())

	first := g.Add(New("allow", param("a")))
	second := g.Add(New("allow", param("b")))
	third := g.Add(New("allow", param("c")))

	assert.Equal(t, []uint64{first, second, third}, g.Indices())

	g.Remove(second)
	assert.Equal(t, []uint64{first, third}, g.Indices())

	// Indices are never reused, so surviving rules keep their identity.
	fourth := g.Add(New("allow", param("d")))
	assert.Greater(t, fourth, third)
	assert.False(t, g.IsEmpty())
}
