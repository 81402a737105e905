// Package keycodec converts push subscription key material between the
// URL-safe base64 form handed out by the application server and the raw
// binary form the push platform works with.
package keycodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when the input is not valid base64url.
var ErrInvalidKey = errors.New("keycodec: invalid base64url key")

var urlToStd = strings.NewReplacer("-", "+", "_", "/")

// DecodePublicKey decodes a URL-safe base64 application server key into raw
// bytes. Missing padding is tolerated, matching the form VAPID public keys
// are distributed in.
func DecodePublicKey(key string) ([]byte, error) {
	if rem := len(key) % 4; rem != 0 {
		key += strings.Repeat("=", 4-rem)
	}
	key = urlToStd.Replace(key)

	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return raw, nil
}

// EncodeKeyMaterial encodes raw key or secret bytes as standard base64 for
// storage and transport.
func EncodeKeyMaterial(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
