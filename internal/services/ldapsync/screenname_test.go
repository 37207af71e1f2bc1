package ldapsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository/memory"
)

func TestNormalizeScreenName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jdoe", "jdoe"},
		{"John.Doe", "john.doe"},
		{"José Müller", "jose.muller"},
		{"o'brien+tag", "o.brien.tag"},
		{"__x-y__", "__x-y__"},
		{"..dots..", "dots"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeScreenName(tt.in))
		})
	}
}

func TestDefaultScreenNameGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("without a store", func(t *testing.T) {
		g := NewDefaultScreenNameGenerator(nil)

		name, err := g.Generate(ctx, 1, 42, "Renée@example.com")
		require.NoError(t, err)
		assert.Equal(t, "renee", name)

		name, err = g.Generate(ctx, 1, 42, "12345@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user.12345", name)

		name, err = g.Generate(ctx, 1, 42, "@example.com")
		require.NoError(t, err)
		assert.Equal(t, "42", name)
	})

	t.Run("suffixes until free", func(t *testing.T) {
		users := memory.NewUserRepository()
		users.Seed(&models.User{CompanyID: 1, ScreenName: "jdoe"})
		users.Seed(&models.User{CompanyID: 1, ScreenName: "jdoe.1"})
		g := NewDefaultScreenNameGenerator(users)

		name, err := g.Generate(ctx, 1, 99, "jdoe@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jdoe.2", name)
	})

	t.Run("own screen name is kept", func(t *testing.T) {
		users := memory.NewUserRepository()
		self := users.Seed(&models.User{CompanyID: 1, ScreenName: "jdoe"})
		g := NewDefaultScreenNameGenerator(users)

		name, err := g.Generate(ctx, 1, self.ID, "jdoe@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jdoe", name)
	})

	t.Run("other companies do not collide", func(t *testing.T) {
		users := memory.NewUserRepository()
		users.Seed(&models.User{CompanyID: 2, ScreenName: "jdoe"})
		g := NewDefaultScreenNameGenerator(users)

		name, err := g.Generate(ctx, 1, 5, "jdoe@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jdoe", name)
	})
}

func TestPasswordPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy PasswordPolicy
		want   string
	}{
		{"import enabled", PasswordPolicy{ImportEnabled: true, DefaultPassword: "ignored"}, "from-directory"},
		{"fixed default", PasswordPolicy{DefaultPassword: "Welcome1"}, "Welcome1"},
		{"screen name token", PasswordPolicy{DefaultPassword: "screenName"}, "jdoe"},
		{"token any case", PasswordPolicy{DefaultPassword: "SCREENNAME"}, "jdoe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Resolve("from-directory", "jdoe"))
		})
	}
}
