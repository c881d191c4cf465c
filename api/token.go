package api

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TokenCodec issues the access tokens handed to agent platforms during
// account linking: a reversibly encrypted user id that only this service
// can decode.
type TokenCodec struct {
	aead cipher.AEAD
}

// NewTokenCodec creates a codec from a 16, 24, or 32 byte key.
func NewTokenCodec(key []byte) (*TokenCodec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &TokenCodec{aead: aead}, nil
}

// Encode produces an opaque token carrying the user id and client id.
func (tc *TokenCodec) Encode(userID int64, clientID string) (string, error) {
	nonce := make([]byte, tc.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	plaintext := fmt.Sprintf("%d|%s", userID, clientID)
	sealed := tc.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decode recovers the user id and client id from a token.
func (tc *TokenCodec) Decode(token string) (int64, string, error) {
	sealed, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return 0, "", err
	}
	if len(sealed) < tc.aead.NonceSize() {
		return 0, "", errors.New("token too short")
	}
	nonce, ciphertext := sealed[:tc.aead.NonceSize()], sealed[tc.aead.NonceSize():]
	plaintext, err := tc.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return 0, "", err
	}
	parts := strings.SplitN(string(plaintext), "|", 2)
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", errors.New("malformed token payload")
	}
	clientID := ""
	if len(parts) == 2 {
		clientID = parts[1]
	}
	return userID, clientID, nil
}
