package grid

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user-admin-api/internal/bulkedit"
	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/repository"
)

// manualTimer collects deferred checks so tests decide when they run
type manualTimer struct {
	pending []func()
}

func (m *manualTimer) schedule(_ time.Duration, fn func()) {
	m.pending = append(m.pending, fn)
}

func (m *manualTimer) fire() {
	pending := m.pending
	m.pending = nil
	for _, fn := range pending {
		fn()
	}
}

type fixture struct {
	store repository.UserRepository
	ctrl  *Controller
	timer *manualTimer
}

func newFixture(t *testing.T, users ...models.NewUser) *fixture {
	t.Helper()
	n := 0
	store := repository.NewUserRepoWithIDs(func() string {
		n++
		return fmt.Sprintf("%d", n)
	})
	_, err := store.BatchInsert(context.Background(), users)
	require.NoError(t, err)

	timer := &manualTimer{}
	log := zerolog.Nop()
	ctrl := NewController(store, bulkedit.NewResolver(store, log), log, Options{Schedule: timer.schedule})
	return &fixture{store: store, ctrl: ctrl, timer: timer}
}

func sampleUser(username, department string, policy models.MfaPolicy) models.NewUser {
	return models.NewUser{
		Username:        username,
		FirstName:       "Fn",
		LastName:        "Ln",
		Email:           username + "@mail.test",
		Department:      department,
		MfaPolicy:       policy,
		IdentityMapping: "AD:" + username,
	}
}

func threeUsers() []models.NewUser {
	return []models.NewUser{
		sampleUser("asmith", "Cardiology", models.MfaPolicyHigh),
		sampleUser("bjohnson", "Pediatrics", models.MfaPolicyMedium),
		sampleUser("cwilliams", "Oncology", models.MfaPolicyLow),
	}
}

func (f *fixture) user(t *testing.T, id string) models.User {
	t.Helper()
	u, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return *u
}

func TestEnterCommitsOnlyEditedField(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()
	before := f.user(t, "2")

	require.NoError(t, f.ctrl.ClickCell(ctx, "2", models.FieldEmail))
	state, _ := f.ctrl.State(ctx)
	require.NotNil(t, state.Editing)
	assert.Equal(t, before.Email, state.Editing.Value)

	require.NoError(t, f.ctrl.Stage("bob@new.test"))
	require.NoError(t, f.ctrl.Key(ctx, KeyEnter))

	want := before
	want.Email = "bob@new.test"
	assert.Equal(t, want, f.user(t, "2"))

	state, _ = f.ctrl.State(ctx)
	assert.Nil(t, state.Editing)
}

func TestEscapeDiscards(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()
	before := f.user(t, "1")

	require.NoError(t, f.ctrl.ClickCell(ctx, "1", models.FieldEmail))
	require.NoError(t, f.ctrl.Stage("changed@mail.test"))
	require.NoError(t, f.ctrl.Key(ctx, KeyEscape))

	assert.Equal(t, before, f.user(t, "1"))
	assert.ErrorIs(t, f.ctrl.Key(ctx, KeyEnter), ErrNotEditing)
}

func TestClickElsewhereCommitsPreviousEdit(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	require.NoError(t, f.ctrl.ClickCell(ctx, "1", models.FieldFirstName))
	require.NoError(t, f.ctrl.Stage("Alicia"))
	require.NoError(t, f.ctrl.ClickCell(ctx, "3", models.FieldLastName))

	assert.Equal(t, "Alicia", f.user(t, "1").FirstName)

	state, _ := f.ctrl.State(ctx)
	require.NotNil(t, state.Editing)
	assert.Equal(t, EditState{UserID: "3", Field: models.FieldLastName, Value: "Ln"}, *state.Editing)
	assert.Equal(t, CellTarget("3", models.FieldLastName), state.Focus)
}

func TestClickSameCellKeepsStagedValue(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	require.NoError(t, f.ctrl.ClickCell(ctx, "1", models.FieldUsername))
	require.NoError(t, f.ctrl.Stage("draft"))
	require.NoError(t, f.ctrl.ClickCell(ctx, "1", models.FieldUsername))

	state, _ := f.ctrl.State(ctx)
	assert.Equal(t, "draft", state.Editing.Value)
	assert.Equal(t, "asmith", f.user(t, "1").Username)
}

func TestTextBlurCommitsImmediately(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	require.NoError(t, f.ctrl.ClickCell(ctx, "2", models.FieldDepartment))
	require.NoError(t, f.ctrl.Stage("Radiology"))
	require.NoError(t, f.ctrl.Blur(ctx, ""))

	assert.Equal(t, "Radiology", f.user(t, "2").Department)
	assert.Empty(t, f.timer.pending)
}

func TestEnumBlurIntoOptionListKeepsEditorOpen(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	require.NoError(t, f.ctrl.ClickCell(ctx, "3", models.FieldMfaPolicy))
	require.NoError(t, f.ctrl.Blur(ctx, ""))
	// focus lands in the popup after the blur event
	f.ctrl.Focus(OptionListTarget(models.FieldMfaPolicy))
	f.timer.fire()

	state, _ := f.ctrl.State(ctx)
	require.NotNil(t, state.Editing)
	assert.Equal(t, models.MfaPolicyLow, f.user(t, "3").MfaPolicy)

	require.NoError(t, f.ctrl.Stage("High"))
	require.NoError(t, f.ctrl.Blur(ctx, "body"))
	assert.Equal(t, models.MfaPolicyLow, f.user(t, "3").MfaPolicy, "commit waits for the grace period")

	f.timer.fire()
	assert.Equal(t, models.MfaPolicyHigh, f.user(t, "3").MfaPolicy)
	state, _ = f.ctrl.State(ctx)
	assert.Nil(t, state.Editing)
}

func TestEnumDeferredCheckIgnoredAfterEditorCloses(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	require.NoError(t, f.ctrl.ClickCell(ctx, "1", models.FieldMfaPolicy))
	require.NoError(t, f.ctrl.Stage("Low"))
	require.NoError(t, f.ctrl.Blur(ctx, ""))
	require.NoError(t, f.ctrl.Key(ctx, KeyEscape))

	// a new editor on the same cell must not be committed by the old check
	require.NoError(t, f.ctrl.ClickCell(ctx, "1", models.FieldMfaPolicy))
	require.NoError(t, f.ctrl.Stage("Medium"))
	f.timer.fire()

	assert.Equal(t, models.MfaPolicyHigh, f.user(t, "1").MfaPolicy)
	state, _ := f.ctrl.State(ctx)
	require.NotNil(t, state.Editing)
	assert.Equal(t, "Medium", state.Editing.Value)
}

func TestStageRejectsUnknownOption(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	assert.ErrorIs(t, f.ctrl.Stage("x"), ErrNotEditing)

	require.NoError(t, f.ctrl.ClickCell(ctx, "1", models.FieldMfaPolicy))
	assert.ErrorIs(t, f.ctrl.Stage("high"), ErrInvalidOption)
}

func TestClickCellErrors(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	assert.ErrorIs(t, f.ctrl.ClickCell(ctx, "99", models.FieldEmail), ErrUnknownRow)
	assert.ErrorIs(t, f.ctrl.ClickCell(ctx, "1", models.Field("id")), ErrUnknownField)
	assert.ErrorIs(t, f.ctrl.Key(ctx, KeyEnter), ErrNotEditing)

	require.NoError(t, f.ctrl.ClickCell(ctx, "1", models.FieldEmail))
	assert.ErrorIs(t, f.ctrl.Key(ctx, Key("Tab")), ErrUnknownKey)
}

func TestCheckFailureKeepsEditorOpen(t *testing.T) {
	store := repository.NewUserRepoWithIDs(func() string { return "1" })
	_, err := store.Create(context.Background(), sampleUser("asmith", "Cardiology", models.MfaPolicyHigh))
	require.NoError(t, err)

	rejected := errors.New("email is required")
	log := zerolog.Nop()
	ctrl := NewController(store, bulkedit.NewResolver(store, log), log, Options{
		Schedule: (&manualTimer{}).schedule,
		Check: func(u *models.User) error {
			if u.Email == "" {
				return rejected
			}
			return nil
		},
	})
	ctx := context.Background()

	require.NoError(t, ctrl.ClickCell(ctx, "1", models.FieldEmail))
	require.NoError(t, ctrl.Stage(""))
	assert.ErrorIs(t, ctrl.Key(ctx, KeyEnter), rejected)

	state, _ := ctrl.State(ctx)
	require.NotNil(t, state.Editing)
	u, _ := store.GetByID(ctx, "1")
	assert.Equal(t, "asmith@mail.test", u.Email)
}

func TestSelectAllUsesVisibleRows(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	f.ctrl.SetFilter("cardio")
	require.NoError(t, f.ctrl.SelectAll(ctx, true))

	state, _ := f.ctrl.State(ctx)
	assert.Equal(t, []string{"1"}, state.Selected)
	assert.Equal(t, 1, state.Total)
	assert.True(t, state.AllSelected)

	f.ctrl.SetFilter("")
	all, _ := f.ctrl.AllSelected(ctx)
	assert.False(t, all)

	require.NoError(t, f.ctrl.SelectAll(ctx, true))
	all, _ = f.ctrl.AllSelected(ctx)
	assert.True(t, all)

	require.NoError(t, f.ctrl.SelectAll(ctx, false))
	state, _ = f.ctrl.State(ctx)
	assert.Empty(t, state.Selected)
	assert.False(t, state.AllSelected)
}

func TestAllSelectedIgnoresHiddenSelection(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	f.ctrl.Select([]string{"1", "2"}, true)
	f.ctrl.SetFilter("ology")

	state, err := f.ctrl.State(ctx)
	require.NoError(t, err)
	require.Len(t, state.Rows, 2)
	assert.Equal(t, "1", state.Rows[0].ID)
	assert.Equal(t, "3", state.Rows[1].ID)
	assert.Equal(t, []string{"1", "2"}, state.Selected)
	assert.False(t, state.AllSelected)

	f.ctrl.Select([]string{"3"}, true)
	all, err := f.ctrl.AllSelected(ctx)
	require.NoError(t, err)
	assert.True(t, all)
}

func TestAllSelectedFalseForEmptyCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.SelectAll(ctx, true))
	all, err := f.ctrl.AllSelected(ctx)
	require.NoError(t, err)
	assert.False(t, all)
}

func TestSelectToggle(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	f.ctrl.Select([]string{"3", "1"}, true)
	f.ctrl.Select([]string{"3"}, false)
	f.ctrl.Select([]string{"2"}, true)

	state, _ := f.ctrl.State(ctx)
	assert.Equal(t, []string{"1", "2"}, state.Selected)
}

func TestDeleteSelected(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	f.ctrl.Select([]string{"1", "3"}, true)
	removed, err := f.ctrl.DeleteSelected(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	users, _ := f.store.List(ctx)
	require.Len(t, users, 1)
	assert.Equal(t, "2", users[0].ID)

	state, _ := f.ctrl.State(ctx)
	assert.Empty(t, state.Selected)

	removed, err = f.ctrl.DeleteSelected(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestDeleteSelectedClosesEditorOnDeletedRow(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	require.NoError(t, f.ctrl.ClickCell(ctx, "2", models.FieldEmail))
	f.ctrl.Select([]string{"2"}, true)
	_, err := f.ctrl.DeleteSelected(ctx)
	require.NoError(t, err)

	state, _ := f.ctrl.State(ctx)
	assert.Nil(t, state.Editing)
}

func TestBulkEditEndToEnd(t *testing.T) {
	f := newFixture(t, sampleUser("asmith", "Cardiology", models.MfaPolicyLow))
	ctx := context.Background()
	before := f.user(t, "1")

	f.ctrl.Select([]string{"1"}, true)
	updated, err := f.ctrl.BulkEdit(ctx, models.FieldMfaPolicy, "High")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	want := before
	want.MfaPolicy = models.MfaPolicyHigh
	assert.Equal(t, want, f.user(t, "1"))

	state, _ := f.ctrl.State(ctx)
	assert.Empty(t, state.Selected)
}

func TestBulkEditRejectionKeepsSelection(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	f.ctrl.Select([]string{"1", "2"}, true)
	_, err := f.ctrl.BulkEdit(ctx, models.FieldDepartment, "")
	assert.ErrorIs(t, err, bulkedit.ErrDepartmentRequired)

	state, _ := f.ctrl.State(ctx)
	assert.Equal(t, []string{"1", "2"}, state.Selected)

	domain, err := f.ctrl.BulkDomain(ctx, models.FieldDepartment)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiology", "Oncology", "Pediatrics"}, domain)
}

func TestStatePrunesRemovedRows(t *testing.T) {
	f := newFixture(t, threeUsers()...)
	ctx := context.Background()

	f.ctrl.Select([]string{"1", "2"}, true)
	_, err := f.store.Delete(ctx, []string{"1"})
	require.NoError(t, err)

	state, _ := f.ctrl.State(ctx)
	assert.Equal(t, []string{"2"}, state.Selected)
	assert.Equal(t, 2, state.Total)
}
