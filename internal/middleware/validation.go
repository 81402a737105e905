package middleware

import (
	"encoding/base64"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs custom binding validators. Call once at
// startup before routes are served.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("b64key", isBase64Key)
	}
}

// isBase64Key accepts subscription key material in either base64 alphabet,
// padded or not, since browsers hand out base64url and the client library
// re-encodes with the standard alphabet.
func isBase64Key(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if _, err := enc.DecodeString(value); err == nil {
			return true
		}
	}
	return false
}
