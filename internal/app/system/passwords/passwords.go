// Package passwords generates and hashes account credentials.
package passwords

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// GeneratedLength is the length of passwords produced by Generate.
const GeneratedLength = 20

// MinLength is the shortest password a requester may choose.
const MinLength = 8

const alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%^&*-_=+"

var ErrTooShort = errors.New("password too short")

// Generate returns a random password drawn from crypto/rand.
func Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, GeneratedLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Hash returns the bcrypt hash of plain.
func Hash(plain string) (string, error) {
	if len(plain) < MinLength {
		return "", ErrTooShort
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Check reports whether plain matches hash.
func Check(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// GenerateHashed returns a fresh password and its hash.
func GenerateHashed() (plain, hash string, err error) {
	plain, err = Generate()
	if err != nil {
		return "", "", err
	}
	hash, err = Hash(plain)
	if err != nil {
		return "", "", err
	}
	return plain, hash, nil
}
