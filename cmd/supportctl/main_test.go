package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumo/backend/internal/models"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"supportctl"}, args...))
	return strings.TrimSpace(out.String()), err
}

func tokenLifetime(t *testing.T, token, secret string) (string, time.Duration) {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	iat, err := claims.GetIssuedAt()
	require.NoError(t, err)
	return claims["user_id"].(string), exp.Sub(iat.Time)
}

func TestTokenDefaultsToConfiguredExpiration(t *testing.T) {
	assert := assert.New(t)
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_EXPIRATION", "90m")

	token, err := runApp(t, "token", "--user", "mod1")
	require.NoError(t, err)
	user, ttl := tokenLifetime(t, token, "cli-secret")
	assert.Equal("mod1", user)
	assert.Equal(90*time.Minute, ttl)

	token, err = runApp(t, "token", "--user", "mod1", "--ttl", "1m")
	require.NoError(t, err)
	_, ttl = tokenLifetime(t, token, "cli-secret")
	assert.Equal(time.Minute, ttl)
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := runApp(t, "token", "--user", "mod1")
	assert.Error(t, err)
}

func TestMigrateAndPermissions(t *testing.T) {
	assert := assert.New(t)
	dburl := "sqlite://" + filepath.Join(t.TempDir(), "support.db")

	out, err := runApp(t, "--database-url", dburl, "migrate")
	require.NoError(t, err)
	assert.Equal("database migrated", out)

	out, err = runApp(t, "--database-url", dburl, "grant", "mod1", models.PermBanAccount, models.PermIgnoreAccount)
	require.NoError(t, err)
	assert.Equal("mod1: customercare.ban_account, customercare.ignore_account", out)

	out, err = runApp(t, "--database-url", dburl, "revoke", "mod1", models.PermBanAccount)
	require.NoError(t, err)
	assert.Equal("mod1: customercare.ignore_account", out)

	out, err = runApp(t, "--database-url", dburl, "contributors", "--from", "2024-01-01", "--count")
	require.NoError(t, err)
	assert.Equal("0", out)

	_, err = runApp(t, "--database-url", dburl, "grant", "mod1")
	assert.Error(err)
}
