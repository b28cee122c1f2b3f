package webhooktoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	svc := NewService("secret", time.Hour)

	token, err := svc.Sign("sim-standard")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "sms-simulator", claims["iss"])
	assert.Equal(t, "sim-standard", claims["sub"])
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", time.Hour).Sign("sim-standard")
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("secret", -time.Minute)

	token, err := svc.Sign("sim-standard")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewService("secret", time.Hour).Verify("not-a-token")
	require.Error(t, err)
}
