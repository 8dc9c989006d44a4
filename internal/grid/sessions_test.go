package grid

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user-admin-api/internal/bulkedit"
	"github.com/user-admin-api/internal/repository"
)

func TestSessionsExpireWhenIdle(t *testing.T) {
	store := repository.NewUserRepo()
	log := zerolog.Nop()
	n := 0
	sessions := NewSessions(time.Minute, func() *Controller {
		return NewController(store, bulkedit.NewResolver(store, log), log, Options{})
	}, func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}, log)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	sessions.SetClock(func() time.Time { return now })

	first, ctrl := sessions.Create()
	second, _ := sessions.Create()
	assert.Equal(t, "s1", first)
	assert.Equal(t, 2, sessions.Len())

	now = now.Add(50 * time.Second)
	got, ok := sessions.Get(first)
	require.True(t, ok)
	assert.Same(t, ctrl, got)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, sessions.Sweep())
	_, ok = sessions.Get(second)
	assert.False(t, ok)
	_, ok = sessions.Get(first)
	assert.True(t, ok)

	assert.True(t, sessions.Delete(first))
	assert.False(t, sessions.Delete(first))
	assert.Zero(t, sessions.Len())
}
