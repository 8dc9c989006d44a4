package seed

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user-admin-api/internal/repository"
	"github.com/user-admin-api/internal/validation"
)

func TestGeneratedUsersAreValidAndUnique(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewPCG(1, 2)), BaseUsers)
	users := g.Users(100)
	require.NotEmpty(t, users)

	v := validation.NewValidator()
	usernames := make(map[string]bool)
	emails := make(map[string]bool)
	for _, u := range users {
		assert.Empty(t, v.ValidateNewUser(&u), "generated user %s should be valid", u.Username)
		assert.False(t, usernames[u.Username], "duplicate username %s", u.Username)
		assert.False(t, emails[u.Email], "duplicate email %s", u.Email)
		usernames[u.Username] = true
		emails[u.Email] = true
	}
}

func TestLoad(t *testing.T) {
	repo := repository.NewUserRepo()
	ctx := context.Background()

	n, err := Load(ctx, repo, 20, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	first, _ := repo.GetByID(ctx, "1")
	require.NotNil(t, first)
	assert.Equal(t, "asmith", first.Username)

	// a populated repository is not seeded twice
	n, err = Load(ctx, repo, 20, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	assert.Zero(t, n)
	count, _ := repo.Count(ctx)
	assert.Equal(t, 25, count)
}
