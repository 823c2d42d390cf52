package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acquisitions/internal/model"
)

func TestJWTService_SignAndVerify(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	id := Identity{ID: 7, Email: "test@example.com", Role: model.RoleAdmin}

	token, err := svc.Sign(id)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Identity())
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestJWTService_Verify(t *testing.T) {
	id := Identity{ID: 1, Email: "user@example.com", Role: model.RoleUser}

	expired := NewJWTService("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Sign(id)
	require.NoError(t, err)

	other := NewJWTService("other-secret", time.Hour)
	foreignToken, err := other.Sign(id)
	require.NoError(t, err)

	valid := NewJWTService("test-secret", time.Hour)
	validToken, err := valid.Sign(id)
	require.NoError(t, err)
	tampered := validToken[:len(validToken)-2] + "xx"

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "expired", token: expiredToken, wantErr: ErrExpiredToken},
		{name: "signed with another secret", token: foreignToken, wantErr: ErrInvalidToken},
		{name: "tampered signature", token: tampered, wantErr: ErrInvalidToken},
		{name: "garbage", token: "not.a.token", wantErr: ErrInvalidToken},
		{name: "empty", token: "", wantErr: ErrInvalidToken},
	}

	svc := NewJWTService("test-secret", time.Hour)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Verify(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTService_ExpiredAndInvalidAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrExpiredToken, ErrInvalidToken)
	assert.NotErrorIs(t, ErrInvalidToken, ErrExpiredToken)
}
