package password

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// generatedAlphabet omits characters that are easy to misread (0/O, 1/l/I).
const generatedAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a uniformly random password of n characters, used when a
// recovery token is redeemed and the account gets a temporary credential.
func Generate(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("password length must be positive")
	}

	max := big.NewInt(int64(len(generatedAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = generatedAlphabet[idx.Int64()]
	}
	return string(out), nil
}
