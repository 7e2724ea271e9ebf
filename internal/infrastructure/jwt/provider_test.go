package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/market-realtime/internal/config"
	"github.com/market-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T, withPrivate bool) (*rsa.PrivateKey, *config.Config) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := &config.Config{
		JWTPrivateKeyPath: filepath.Join(dir, "private.pem"),
		JWTPublicKeyPath:  filepath.Join(dir, "public.pem"),
		JWTExpiry:         time.Hour,
	}
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.JWTPublicKeyPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0600))
	if withPrivate {
		privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
		require.NoError(t, os.WriteFile(cfg.JWTPrivateKeyPath, privPEM, 0600))
	}
	return key, cfg
}

func TestSignVerify_RoundTrip(t *testing.T) {
	_, cfg := writeKeys(t, true)
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	tok, err := p.Sign(42, "alice", domain.RoleUser)
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestNewProvider_VerifyOnly(t *testing.T) {
	key, cfg := writeKeys(t, false)
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	_, err = p.Sign(1, "", domain.RoleUser)
	assert.Error(t, err)

	// A token minted elsewhere with only sub set still identifies the user.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(key)
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestVerify_Failures(t *testing.T) {
	key, cfg := writeKeys(t, true)
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}).SignedString(key)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		Role:             domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice@example.com"},
	}).SignedString(key)
	require.NoError(t, err)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage": "not-a-token",
		"expired": expired,
		"no user": noUser,
		"hmac":    hmac,
	} {
		_, err := p.Verify(tok)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, name)
	}
}

func TestNewProvider_MissingPublicKey(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPublicKeyPath: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)
}
