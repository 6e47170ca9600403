package session

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeGen_Format(t *testing.T) {
	t.Parallel()
	gen := NewCodeGen()
	valid := regexp.MustCompile(`^[A-Z0-9]{6}$`)

	for range 200 {
		code := gen.Generate()
		assert.Regexp(t, valid, code)
		assert.Equal(t, code, NormalizeCode(code))
	}
}

func TestCodeGen_Deterministic(t *testing.T) {
	t.Parallel()
	i := 0
	gen := &randomCodeGen{intn: func(n int) int {
		i++
		return (i - 1) % n
	}}

	assert.Equal(t, "ABCDEF", gen.Generate())
	assert.Equal(t, "GHIJKL", gen.Generate())
}

func TestUniqueCode(t *testing.T) {
	t.Parallel()
	taken := map[string]bool{"AAAAAA": true}
	isTaken := func(c string) bool { return taken[c] }

	code, err := uniqueCode(&fixedCodes{codes: []string{"AAAAAA", "AAAAAA", "ZZZZZZ"}}, isTaken)
	assert.NoError(t, err)
	assert.Equal(t, "ZZZZZZ", code)

	gen := &fixedCodes{codes: []string{"AAAAAA"}}
	_, err = uniqueCode(gen, isTaken)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, maxCodeAttempts, gen.i)
}
