package session

import "math/rand/v2"

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength      = 6
	maxCodeAttempts = 64
)

type CodeGenerator interface {
	Generate() string
}

type randomCodeGen struct {
	intn func(n int) int
}

func NewCodeGen() *randomCodeGen {
	return &randomCodeGen{intn: rand.IntN}
}

func (cg *randomCodeGen) Generate() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[cg.intn(len(codeAlphabet))]
	}
	return string(b)
}

// uniqueCode draws codes until taken reports false.
func uniqueCode(gen CodeGenerator, taken func(code string) bool) (string, error) {
	for range maxCodeAttempts {
		code := gen.Generate()
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
