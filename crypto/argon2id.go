package crypto

import (
	"drawit/domain"
	"fmt"

	"github.com/alexedwards/argon2id"
)

// DefaultParams are the production cost settings. Memory is in KiB.
var DefaultParams = argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type Argon2idHasher struct {
	params argon2id.Params
}

func NewArgon2idHasher(params argon2id.Params) *Argon2idHasher {
	return &Argon2idHasher{params: params}
}

func (h *Argon2idHasher) Hash(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, &h.params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.UnexpectedPasswordHashingError, err)
	}
	return hash, nil
}

// Compare reads the cost parameters from the stored hash, so hashes made with older
// params keep verifying.
func (h *Argon2idHasher) Compare(hash, password string) (bool, error) {
	match, _, err := argon2id.CheckHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.UnexpectedPasswordHashComparisonError, err)
	}
	return match, nil
}
