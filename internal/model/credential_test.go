package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	consumed := now.Add(-time.Minute)

	tests := []struct {
		name string
		cred Credential
		code string
		want error
	}{
		{
			"valid",
			Credential{Code: "123456", ExpiresAt: now.Add(time.Minute)},
			"123456", nil,
		},
		{
			"wrong code",
			Credential{Code: "123456", ExpiresAt: now.Add(time.Minute)},
			"654321", ErrCredentialCodeMismatch,
		},
		{
			"expired",
			Credential{Code: "123456", ExpiresAt: now.Add(-time.Second)},
			"123456", ErrCredentialExpired,
		},
		{
			"consumed",
			Credential{Code: "123456", ExpiresAt: now.Add(time.Minute), ConsumedAt: &consumed},
			"123456", ErrCredentialAlreadyConsumed,
		},
		{
			// Consumed wins over a wrong code: a retried consume must not
			// look like a typo.
			"consumed with wrong code",
			Credential{Code: "123456", ExpiresAt: now.Add(time.Minute), ConsumedAt: &consumed},
			"000000", ErrCredentialAlreadyConsumed,
		},
		{
			// Consumed wins over expiry too.
			"consumed and expired",
			Credential{Code: "123456", ExpiresAt: now.Add(-time.Minute), ConsumedAt: &consumed},
			"123456", ErrCredentialAlreadyConsumed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cred.Validate(tt.code, now)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCredentialIsExpiredBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Credential{ExpiresAt: now}
	// Exactly at expiry the credential is still usable.
	assert.False(t, c.IsExpired(now))
	assert.True(t, c.IsExpired(now.Add(time.Nanosecond)))
}
