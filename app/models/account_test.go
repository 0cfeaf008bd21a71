package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSetupToken(t *testing.T) {
	a := &Account{Email: "guest@example.com"}
	assert.NoError(t, a.GenerateSetupToken())
	assert.Len(t, a.SetupToken, 32)
	assert.NotNil(t, a.SetupTokenSentAt)

	first := a.SetupToken
	assert.NoError(t, a.GenerateSetupToken())
	assert.NotEqual(t, first, a.SetupToken)
}

func TestIsSetupTokenValid(t *testing.T) {
	a := &Account{Email: "guest@example.com"}
	assert.False(t, a.IsSetupTokenValid("anything"))

	assert.NoError(t, a.GenerateSetupToken())
	assert.True(t, a.IsSetupTokenValid(a.SetupToken))
	assert.False(t, a.IsSetupTokenValid("wrong-token"))

	expired := time.Now().Add(-49 * time.Hour)
	a.SetupTokenSentAt = &expired
	assert.False(t, a.IsSetupTokenValid(a.SetupToken))
}

func TestAccountValidate(t *testing.T) {
	a := &Account{Email: "guest@example.com", SubscriptionStatus: SubscriptionStatusNone}
	assert.NoError(t, a.Validate())

	a.Email = "not-an-email"
	assert.Error(t, a.Validate())

	a.Email = "guest@example.com"
	a.SubscriptionStatus = "unknown"
	assert.Error(t, a.Validate())
}
