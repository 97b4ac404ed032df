package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	tokenIDSize     = 16
	tokenSecretSize = 32
	tokenRawSize    = tokenIDSize + tokenSecretSize
	crumbSize       = 32
)

// TokenID addresses a recovery token record in the token store.
type TokenID [tokenIDSize]byte

// TokenSecret is the unguessable half of a recovery token. Only its hash is stored.
type TokenSecret [tokenSecretSize]byte

func (id TokenID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// ParseTokenID decodes the base64url form produced by TokenID.String.
func ParseTokenID(s string) (TokenID, error) {
	var id TokenID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid token id size")
	}
	copy(id[:], raw)
	return id, nil
}

// NewRecoveryToken returns a fresh token ID, its secret, and the opaque string
// handed to the account owner.
func NewRecoveryToken() (TokenID, TokenSecret, string, error) {
	var id TokenID
	var secret TokenSecret

	if _, err := rand.Read(id[:]); err != nil {
		return id, secret, "", err
	}
	if _, err := rand.Read(secret[:]); err != nil {
		return id, secret, "", err
	}
	return id, secret, EncodeRecoveryToken(id, secret), nil
}

// EncodeRecoveryToken joins id and secret into one URL-safe string.
func EncodeRecoveryToken(id TokenID, secret TokenSecret) string {
	var raw [tokenRawSize]byte
	copy(raw[:tokenIDSize], id[:])
	copy(raw[tokenIDSize:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// DecodeRecoveryToken splits a token produced by EncodeRecoveryToken.
func DecodeRecoveryToken(token string) (TokenID, TokenSecret, error) {
	var id TokenID
	var secret TokenSecret

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return id, secret, err
	}
	if len(raw) != tokenRawSize {
		return id, secret, errors.New("invalid recovery token size")
	}
	copy(id[:], raw[:tokenIDSize])
	copy(secret[:], raw[tokenIDSize:])
	return id, secret, nil
}

// HashTokenSecret is the value persisted in place of the secret.
func HashTokenSecret(secret TokenSecret) [32]byte {
	return sha256.Sum256(secret[:])
}

// NewCrumb returns a random anti-forgery token.
func NewCrumb() (string, error) {
	var b [crumbSize]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
