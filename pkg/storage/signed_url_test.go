package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("soportes", "soportes_adjuntos/2024/05/02/abc-acuerdo.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	scope, key, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "soportes", scope)
	require.Equal(t, "soportes_adjuntos/2024/05/02/abc-acuerdo.pdf", key)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.GenerateWithTTL("tareas", "bitacoras/reporte.csv", 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	scope, key, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "tareas", scope)
	require.Equal(t, "bitacoras/reporte.csv", key)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("tareas", "a.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("otro", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}
