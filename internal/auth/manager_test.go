// internal/auth/manager_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewAuthManager tests creation of auth manager
func TestNewAuthManager(t *testing.T) {
	tests := []struct {
		name           string
		config         AuthConfig
		expectedExpiry time.Duration
	}{
		{
			name: "default configuration",
			config: AuthConfig{
				JWTSecret: "test-secret",
			},
			expectedExpiry: 24 * time.Hour,
		},
		{
			name: "custom configuration",
			config: AuthConfig{
				JWTSecret:     "custom-secret",
				JWTExpiry:     2 * time.Hour,
				SessionExpiry: 48 * time.Hour,
			},
			expectedExpiry: 2 * time.Hour,
		},
		{
			name:           "empty configuration uses defaults",
			config:         AuthConfig{},
			expectedExpiry: 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			am := NewTestAuthManager(tt.config)
			require.NotNil(t, am)
			assert.NotEmpty(t, am.config.JWTSecret)
			assert.Equal(t, tt.expectedExpiry, am.config.JWTExpiry)

			// Verify default admin user was created
			adminUser, err := am.GetUserByUsername("admin")
			require.NoError(t, err)
			assert.Equal(t, "admin", adminUser.Username)
			assert.Contains(t, adminUser.Roles, RoleAdmin)
			assert.True(t, adminUser.Active)
		})
	}
}

// TestRegisterStudent tests student registration
func TestRegisterStudent(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		email       string
		password    string
		wantErr     bool
		errContains string
	}{
		{
			name:     "register new student",
			username: "alice",
			email:    "alice@example.com",
			password: "correct-horse",
			wantErr:  false,
		},
		{
			name:        "duplicate username fails",
			username:    "admin", // Already exists
			email:       "admin2@example.com",
			password:    "whatever",
			wantErr:     true,
			errContains: "already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			am := NewTestAuthManager(AuthConfig{JWTSecret: "test-secret"})

			user, err := am.RegisterStudent(tt.username, tt.email, tt.password)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, user)
			assert.NotEmpty(t, user.ID)
			assert.Equal(t, []string{RoleStudent}, user.Roles)
			assert.True(t, user.Active)
			assert.NotEmpty(t, user.PasswordHash)
			assert.NotEqual(t, tt.password, user.PasswordHash)

			// Verify user can be retrieved
			retrieved, err := am.GetUser(user.ID)
			require.NoError(t, err)
			assert.Equal(t, user.ID, retrieved.ID)
		})
	}
}

// TestValidatePassword tests password validation
func TestValidatePassword(t *testing.T) {
	am := NewTestAuthManager(AuthConfig{JWTSecret: "test-secret"})

	user, err := am.RegisterStudent("bob", "bob@example.com", "s3cret-pass")
	require.NoError(t, err)

	assert.True(t, am.ValidatePassword(user, "s3cret-pass"))
	assert.False(t, am.ValidatePassword(user, "wrong-pass"))

	// Admin user has no password hash, any password is accepted
	admin, err := am.GetUserByUsername("admin")
	require.NoError(t, err)
	assert.True(t, am.ValidatePassword(admin, "anything"))
}

// TestJWTTokenRoundTrip tests token creation and validation
func TestJWTTokenRoundTrip(t *testing.T) {
	am := NewTestAuthManager(AuthConfig{JWTSecret: "test-secret"})

	user, err := am.RegisterStudent("carol", "carol@example.com", "password1")
	require.NoError(t, err)

	token, err := am.CreateJWTToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := am.ValidateJWTToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "carol", claims.Username)
	assert.Equal(t, []string{RoleStudent}, claims.Roles)
	assert.Equal(t, "assignment-ai", claims.Issuer)
}

// TestValidateJWTTokenRejectsGarbage tests invalid token handling
func TestValidateJWTTokenRejectsGarbage(t *testing.T) {
	am := NewTestAuthManager(AuthConfig{JWTSecret: "test-secret"})

	_, err := am.ValidateJWTToken("not-a-token")
	assert.Error(t, err)

	// A token signed with a different secret must be rejected
	other := NewTestAuthManager(AuthConfig{JWTSecret: "other-secret"})
	user, err := other.GetUserByUsername("admin")
	require.NoError(t, err)
	foreign, err := other.CreateJWTToken(user)
	require.NoError(t, err)

	_, err = am.ValidateJWTToken(foreign)
	assert.Error(t, err)
}

// TestGrantRole tests role management
func TestGrantRole(t *testing.T) {
	am := NewTestAuthManager(AuthConfig{JWTSecret: "test-secret"})

	user, err := am.RegisterStudent("dave", "dave@example.com", "password1")
	require.NoError(t, err)
	assert.False(t, user.HasRole(RoleTeacher))

	require.NoError(t, am.GrantRole(user.ID, RoleTeacher))
	assert.True(t, user.HasRole(RoleTeacher))

	// Granting an existing role is a no-op
	require.NoError(t, am.GrantRole(user.ID, RoleTeacher))
	assert.Len(t, user.Roles, 2)

	assert.Error(t, am.GrantRole("missing-id", RoleTeacher))
}

// TestSessionLifecycle tests Redis-backed sessions
func TestSessionLifecycle(t *testing.T) {
	am := NewTestAuthManager(AuthConfig{JWTSecret: "test-secret"})

	user, err := am.RegisterStudent("erin", "erin@example.com", "password1")
	require.NoError(t, err)

	sessionID, err := am.CreateSession(user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	validated, err := am.ValidateSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, validated.ID)

	require.NoError(t, am.RevokeSession(sessionID))

	_, err = am.ValidateSession(sessionID)
	assert.Error(t, err)
}

// TestCreateSessionUnknownUser tests session creation for a missing user
func TestCreateSessionUnknownUser(t *testing.T) {
	am := NewTestAuthManager(AuthConfig{JWTSecret: "test-secret"})

	_, err := am.CreateSession("no-such-user")
	assert.Error(t, err)
}
