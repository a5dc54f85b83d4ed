package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestErrorMessages(t *testing.T) {
	t.Run("policy error formats its message", func(t *testing.T) {
		err := NewPolicyError(4, 12, "Duplicate declaration of %s in the roles list.", `"egg"`)
		assert.Equal(t, `Duplicate declaration of "egg" in the roles list.`, err.Error())
		assert.Equal(t, uint64(4), err.SrcID)
		assert.Equal(t, 12, err.Loc)
	})

	t.Run("validation error prefixes the rendered rule", func(t *testing.T) {
		err := &ValidationError{
			Rule: "f(x);",
			Msg:  "Must match one of the following rule prototypes:\n",
		}
		assert.Equal(t, "Invalid rule: f(x); Must match one of the following rule prototypes:\n", err.Error())
	})
}

func TestFirst(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, First(nil))
	})

	t.Run("single error is returned as is", func(t *testing.T) {
		err := errors.New("boom")
		assert.Same(t, err, First(err))
	})

	t.Run("combined diagnostics yield the first", func(t *testing.T) {
		a := NewPolicyError(1, 0, "first")
		b := NewPolicyError(1, 5, "second")
		assert.Same(t, error(a), First(multierr.Combine(a, b)))
	})
}

func TestRender(t *testing.T) {
	src := "resource Org {\n  roles = [\"egg\",\"egg\"];\n}\n"

	t.Run("policy error renders a caret snippet", func(t *testing.T) {
		// Offset of the second "egg" literal on line 2.
		err := NewPolicyError(1, 32, "Duplicate declaration of %s in the roles list.", `"egg"`)
		got := Render(err, src, "main.polar")

		want := "policy error in main.polar at 2:18: Duplicate declaration of \"egg\" in the roles list.\n" +
			"\n" +
			"   1 | resource Org {\n" +
			"   2 |   roles = [\"egg\",\"egg\"];\n" +
			"     |                  ^\n" +
			"   3 | }\n"
		assert.Equal(t, want, got)
	})

	t.Run("missing filename omits the in clause", func(t *testing.T) {
		err := NewPolicyError(1, 0, "bad")
		got := Render(err, src, "")
		assert.Contains(t, got, "policy error at 1:1: bad")
	})

	t.Run("unlocated errors render their message alone", func(t *testing.T) {
		err := errors.New("File foo.polar has already been loaded.")
		assert.Equal(t, err.Error(), Render(err, src, "foo.polar"))
	})

	t.Run("offset past the end clamps to the last line", func(t *testing.T) {
		err := NewPolicyError(1, len(src)+100, "late")
		got := Render(err, src, "main.polar")
		require.NotEmpty(t, got)
		assert.Contains(t, got, "at 4:1: late")
	})
}
