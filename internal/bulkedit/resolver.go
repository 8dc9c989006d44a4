// Package bulkedit applies one field value to many selected users.
package bulkedit

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/user-admin-api/internal/models"
)

var (
	// ErrDepartmentRequired is returned when department is targeted without a value
	ErrDepartmentRequired = errors.New("a department must be chosen")
	// ErrUnknownDepartment is returned for a department outside the current domain
	ErrUnknownDepartment = errors.New("department is not in use by any user")
	// ErrInvalidMfaPolicy is returned for a value outside Low, Medium, High
	ErrInvalidMfaPolicy = errors.New("invalid mfaPolicy, must be one of: Low, Medium, High")
	// ErrUnsupportedField is returned for fields that cannot be bulk edited
	ErrUnsupportedField = errors.New("field does not support bulk edit")
)

// Fields lists the bulk-editable fields
var Fields = []models.Field{models.FieldDepartment, models.FieldMfaPolicy}

// Store is the part of the user collection the resolver needs
type Store interface {
	Departments(ctx context.Context) ([]string, error)
	BulkPatch(ctx context.Context, ids []string, patch models.UserPatch) (int, error)
}

// Resolver computes value domains and applies bulk edits
type Resolver struct {
	store Store
	log   zerolog.Logger
}

// NewResolver creates a resolver over store
func NewResolver(store Store, log zerolog.Logger) *Resolver {
	return &Resolver{
		store: store,
		log:   log.With().Str("service", "bulkedit").Logger(),
	}
}

// Supported reports whether f can be bulk edited
func Supported(f models.Field) bool {
	return slices.Contains(Fields, f)
}

// Domain returns the values the picker offers for field
func (r *Resolver) Domain(ctx context.Context, field models.Field) ([]string, error) {
	switch field {
	case models.FieldDepartment:
		departments, err := r.store.Departments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list departments: %w", err)
		}
		return departments, nil
	case models.FieldMfaPolicy:
		options := make([]string, len(models.MfaPolicyOptions))
		for i, p := range models.MfaPolicyOptions {
			options[i] = string(p)
		}
		return options, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedField, field)
}

// Apply sets field to value on every listed user.
// Nothing is written unless the value passes validation.
func (r *Resolver) Apply(ctx context.Context, ids []string, field models.Field, value string) (int, error) {
	if err := r.check(ctx, field, value); err != nil {
		r.log.Warn().Err(err).Str("field", string(field)).Str("value", value).Msg("Bulk edit rejected")
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	patch, _ := models.FieldPatch(field, value)
	updated, err := r.store.BulkPatch(ctx, ids, patch)
	if err != nil {
		return 0, fmt.Errorf("failed to apply bulk edit: %w", err)
	}

	r.log.Info().
		Str("field", string(field)).
		Str("value", value).
		Int("selected", len(ids)).
		Int("updated", updated).
		Msg("Bulk edit applied")
	return updated, nil
}

func (r *Resolver) check(ctx context.Context, field models.Field, value string) error {
	switch field {
	case models.FieldDepartment:
		if value == "" {
			return ErrDepartmentRequired
		}
		domain, err := r.Domain(ctx, field)
		if err != nil {
			return err
		}
		if !slices.Contains(domain, value) {
			return fmt.Errorf("%w: %q", ErrUnknownDepartment, value)
		}
		return nil
	case models.FieldMfaPolicy:
		if !models.MfaPolicy(value).IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidMfaPolicy, value)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedField, field)
}
