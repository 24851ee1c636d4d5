// Package midtrans verifies HTTP notifications sent by the Midtrans gateway.
package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrMissingServerKey = errors.New("midtrans server key not configured")
	ErrInvalidSignature = errors.New("invalid notification signature")
)

// Signature computes SHA512(order_id + status_code + gross_amount + server_key)
// as lowercase hex.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

type Verifier struct {
	ServerKey string
}

func NewVerifier(serverKey string) (*Verifier, error) {
	serverKey = strings.TrimSpace(serverKey)
	if serverKey == "" {
		return nil, ErrMissingServerKey
	}
	return &Verifier{ServerKey: serverKey}, nil
}

func (v *Verifier) Verify(orderID, statusCode, grossAmount, signatureKey string) error {
	if signatureKey == "" {
		return ErrInvalidSignature
	}
	want := Signature(orderID, statusCode, grossAmount, v.ServerKey)
	got := strings.ToLower(strings.TrimSpace(signatureKey))
	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
