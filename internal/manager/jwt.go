// Package manager holds the JWT credential manager. Identity itself is an
// external collaborator; this service only verifies tokens it is handed.
package manager

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer         = "visitaflow"
	audience       = "visitaflow-api"
	expirationTime = 24 * time.Hour
)

type visitaflowClaims struct {
	jwt.RegisteredClaims
}

type JWTManager interface {
	// Generate mints a token for userID. Requires the private key.
	Generate(userID string) (string, error)
	// Verify checks the token and returns its subject.
	Verify(token string) (string, error)
}

type jwtManager struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// NewJWTManager loads the Ed25519 key pair from PEM. privateKeyPem may be
// empty for a verify-only manager.
func NewJWTManager(publicKeyPem, privateKeyPem string) (JWTManager, error) {
	publicKey, err := loadPublicKey(publicKeyPem)
	if err != nil {
		return nil, err
	}

	var privateKey ed25519.PrivateKey
	if privateKeyPem != "" {
		privateKey, err = loadPrivateKey(privateKeyPem)
		if err != nil {
			return nil, err
		}
	}

	return &jwtManager{publicKey: publicKey, privateKey: privateKey}, nil
}

func (j *jwtManager) Generate(userID string) (string, error) {
	if j.privateKey == nil {
		return "", fmt.Errorf("jwt manager has no private key")
	}

	now := time.Now()
	claims := visitaflowClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expirationTime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(j.privateKey)
}

func (j *jwtManager) Verify(token string) (string, error) {
	claims := &visitaflowClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.publicKey, nil
	})
	if err != nil {
		return "", err
	}
	if !parsedToken.Valid {
		return "", fmt.Errorf("received an invalid token")
	}
	return claims.Subject, nil
}

func loadPublicKey(pemKey string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("failed to decode PEM block containing public key")
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	ed25519Key, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not an Ed25519 key")
	}
	return ed25519Key, nil
}

func loadPrivateKey(pemKey string) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("failed to decode PEM block containing private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	ed25519Key, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not an Ed25519 key")
	}
	return ed25519Key, nil
}
