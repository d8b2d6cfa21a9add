package utils

import (
	"crypto/rand"
	"math/big"
)

// Alphabets for temporary passwords. 0 O o l 1 I are left out so codes read
// unambiguously in an email.
const (
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars  = "abcdefghijkmnpqrstuvwxyz"
	digitChars  = "23456789"
	symbolChars = "!@#$%^&*-_=+?"
	allChars    = upperChars + lowerChars + digitChars + symbolChars
)

// MinTemporaryPasswordLength is the floor applied to GenerateTemporaryPassword.
const MinTemporaryPasswordLength = 8

// GenerateTemporaryPassword returns a random password of length n (at least 8)
// holding one or more upper, lower, digit and symbol characters.
func GenerateTemporaryPassword(n int) (string, error) {
	if n < MinTemporaryPasswordLength {
		n = MinTemporaryPasswordLength
	}

	out := make([]byte, 0, n)
	for _, set := range []string{upperChars, lowerChars, digitChars, symbolChars} {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < n {
		c, err := randomChar(allChars)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates
	for i := len(out) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func randomChar(set string) (byte, error) {
	i, err := randomIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
