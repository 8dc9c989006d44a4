// Package grid holds the editable user grid state machine: one inline
// edit cursor, a selection set and the visible-row filter. The
// controller does not own the user collection; it reads snapshots from
// the injected Store and sends mutations back to it.
package grid

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/user-admin-api/internal/bulkedit"
	"github.com/user-admin-api/internal/models"
)

var (
	ErrNotEditing    = errors.New("no cell is being edited")
	ErrUnknownRow    = errors.New("user not found")
	ErrUnknownField  = errors.New("field is not editable")
	ErrUnknownKey    = errors.New("unsupported key")
	ErrInvalidOption = errors.New("value is not one of the field options")
)

// Key is a keystroke delivered to the cell editor
type Key string

const (
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// DefaultBlurGrace is how long an enum cell waits after blur before deciding
const DefaultBlurGrace = 100 * time.Millisecond

// Store is the mutation surface the grid writes to
type Store interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Patch(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, ids []string) (int, error)
}

// Scheduler runs fn once after d
type Scheduler func(d time.Duration, fn func())

// AfterFunc schedules on the runtime timer
func AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Checker validates a record before an edit is committed
type Checker func(user *models.User) error

// Options configures a Controller
type Options struct {
	BlurGrace time.Duration
	Schedule  Scheduler
	Check     Checker
}

// EditState is the active edit cursor
type EditState struct {
	UserID string       `json:"userId"`
	Field  models.Field `json:"field"`
	Value  string       `json:"value"`
}

// State is a read snapshot of the controller
type State struct {
	Editing     *EditState    `json:"editing,omitempty"`
	Focus       string        `json:"focus,omitempty"`
	Filter      string        `json:"filter,omitempty"`
	Selected    []string      `json:"selected"`
	AllSelected bool          `json:"allSelected"`
	Rows        []models.User `json:"rows"`
	Total       int           `json:"total"`
}

type editing struct {
	EditState
	seq uint64
}

// Controller is the grid state machine
type Controller struct {
	mu        sync.Mutex
	store     Store
	bulk      *bulkedit.Resolver
	log       zerolog.Logger
	schedule  Scheduler
	blurGrace time.Duration
	check     Checker

	edit     *editing
	editSeq  uint64
	focus    string
	filter   string
	selected map[string]bool
}

// NewController creates a controller in the Idle state with an empty selection
func NewController(store Store, bulk *bulkedit.Resolver, log zerolog.Logger, opts Options) *Controller {
	if opts.Schedule == nil {
		opts.Schedule = AfterFunc
	}
	if opts.BlurGrace <= 0 {
		opts.BlurGrace = DefaultBlurGrace
	}
	return &Controller{
		store:     store,
		bulk:      bulk,
		log:       log.With().Str("service", "grid").Logger(),
		schedule:  opts.Schedule,
		blurGrace: opts.BlurGrace,
		check:     opts.Check,
		selected:  make(map[string]bool),
	}
}

// IsEnum reports whether f is edited through an option list
func IsEnum(f models.Field) bool {
	return f == models.FieldMfaPolicy
}

// CellTarget is the focus target id of a grid cell
func CellTarget(userID string, f models.Field) string {
	return "cell:" + userID + ":" + string(f)
}

// OptionListTarget is the focus target id of the option popup for f
func OptionListTarget(f models.Field) string {
	return "listbox:" + string(f)
}

// ClickCell opens the editor on a cell. An edit already open on another
// cell is committed first; if that commit fails the click is refused.
func (c *Controller) ClickCell(ctx context.Context, userID string, field models.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !field.IsEditable() {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if c.edit != nil && c.edit.UserID == userID && c.edit.Field == field {
		return nil
	}

	user, err := c.store.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: %s", ErrUnknownRow, userID)
	}

	if c.edit != nil {
		if err := c.commitLocked(ctx); err != nil {
			return err
		}
	}

	value, _ := user.Value(field)
	c.editSeq++
	c.edit = &editing{
		EditState: EditState{UserID: userID, Field: field, Value: value},
		seq:       c.editSeq,
	}
	c.focus = CellTarget(userID, field)
	return nil
}

// Stage replaces the uncommitted value of the open editor
func (c *Controller) Stage(value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.edit == nil {
		return ErrNotEditing
	}
	if IsEnum(c.edit.Field) && !models.MfaPolicy(value).IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidOption, value)
	}
	c.edit.Value = value
	return nil
}

// Key handles Enter (commit) and Escape (discard)
func (c *Controller) Key(ctx context.Context, key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.edit == nil {
		return ErrNotEditing
	}
	switch key {
	case KeyEnter:
		return c.commitLocked(ctx)
	case KeyEscape:
		c.edit = nil
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Focus records where focus currently is
func (c *Controller) Focus(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.focus = target
}

// Blur reports that the editor lost focus to target (which may be empty).
// Text cells commit at once. Enum cells decide after the grace period,
// keeping the editor open if focus has moved into their option list.
func (c *Controller) Blur(ctx context.Context, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.edit == nil {
		return nil
	}
	c.focus = target
	if !IsEnum(c.edit.Field) {
		return c.commitLocked(ctx)
	}

	seq := c.edit.seq
	c.schedule(c.blurGrace, func() { c.settleBlur(seq) })
	return nil
}

func (c *Controller) settleBlur(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// the editor was closed or moved before the check ran
	if c.edit == nil || c.edit.seq != seq {
		return
	}
	if c.focus == OptionListTarget(c.edit.Field) {
		return
	}
	if err := c.commitLocked(context.Background()); err != nil {
		c.log.Warn().Err(err).Msg("Deferred commit failed")
	}
}

// commitLocked sends the staged value as a single-field patch.
// A failed check leaves the editor open.
func (c *Controller) commitLocked(ctx context.Context) error {
	edit := c.edit
	patch, ok := models.FieldPatch(edit.Field, edit.Value)
	if !ok {
		c.edit = nil
		return fmt.Errorf("%w: %s", ErrUnknownField, edit.Field)
	}

	if c.check != nil {
		current, err := c.store.GetByID(ctx, edit.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		if current == nil {
			c.edit = nil
			return fmt.Errorf("%w: %s", ErrUnknownRow, edit.UserID)
		}
		patch.Apply(current)
		if err := c.check(current); err != nil {
			return err
		}
	}

	if _, err := c.store.Patch(ctx, edit.UserID, patch); err != nil {
		c.edit = nil
		return fmt.Errorf("failed to save edit: %w", err)
	}

	c.log.Debug().
		Str("user_id", edit.UserID).
		Str("field", string(edit.Field)).
		Msg("Cell committed")
	c.edit = nil
	return nil
}

// SetFilter changes which rows are visible
func (c *Controller) SetFilter(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter = query
}

// Select checks or unchecks individual rows
func (c *Controller) Select(ids []string, checked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		if checked {
			c.selected[id] = true
		} else {
			delete(c.selected, id)
		}
	}
}

// SelectAll selects every visible row, or clears the selection
func (c *Controller) SelectAll(ctx context.Context, checked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.selected)
	if !checked {
		return nil
	}
	rows, err := c.visibleLocked(ctx)
	if err != nil {
		return err
	}
	for _, u := range rows {
		c.selected[u.ID] = true
	}
	return nil
}

// DeleteSelected removes every selected row in one store call, then clears the selection
func (c *Controller) DeleteSelected(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.selectedIDsLocked()
	if len(ids) == 0 {
		return 0, nil
	}
	removed, err := c.store.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete selected users: %w", err)
	}
	if c.edit != nil && slices.Contains(ids, c.edit.UserID) {
		c.edit = nil
	}
	clear(c.selected)

	c.log.Info().Int("selected", len(ids)).Int("removed", removed).Msg("Selected users deleted")
	return removed, nil
}

// BulkEdit applies value to field on every selected row.
// The selection is cleared on success and kept when the edit is rejected.
func (c *Controller) BulkEdit(ctx context.Context, field models.Field, value string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	updated, err := c.bulk.Apply(ctx, c.selectedIDsLocked(), field, value)
	if err != nil {
		return 0, err
	}
	clear(c.selected)
	return updated, nil
}

// BulkDomain returns the picker values for a bulk edit of field
func (c *Controller) BulkDomain(ctx context.Context, field models.Field) ([]string, error) {
	return c.bulk.Domain(ctx, field)
}

// State returns a snapshot. Selected ids that no longer exist are dropped.
func (c *Controller) State(ctx context.Context) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	users, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	c.pruneLocked(users)

	rows := Filter(users, c.filter)
	state := &State{
		Focus:    c.focus,
		Filter:   c.filter,
		Selected: c.orderedSelection(users),
		Rows:     rows,
		Total:    len(rows),
	}
	visibleSelected := 0
	for _, u := range rows {
		if c.selected[u.ID] {
			visibleSelected++
		}
	}
	// hidden selected rows do not check the header box
	state.AllSelected = state.Total > 0 && visibleSelected == state.Total
	if c.edit != nil {
		edit := c.edit.EditState
		state.Editing = &edit
	}
	return state, nil
}

// AllSelected reports whether the header checkbox shows as checked
func (c *Controller) AllSelected(ctx context.Context) (bool, error) {
	state, err := c.State(ctx)
	if err != nil {
		return false, err
	}
	return state.AllSelected, nil
}

func (c *Controller) visibleLocked(ctx context.Context) ([]models.User, error) {
	users, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return Filter(users, c.filter), nil
}

func (c *Controller) pruneLocked(users []models.User) {
	live := make(map[string]bool, len(users))
	for _, u := range users {
		live[u.ID] = true
	}
	for id := range c.selected {
		if !live[id] {
			delete(c.selected, id)
		}
	}
	if c.edit != nil && !live[c.edit.UserID] {
		c.edit = nil
	}
}

func (c *Controller) orderedSelection(users []models.User) []string {
	ids := make([]string, 0, len(c.selected))
	for _, u := range users {
		if c.selected[u.ID] {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func (c *Controller) selectedIDsLocked() []string {
	ids := make([]string, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
