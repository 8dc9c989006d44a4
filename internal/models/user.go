package models

// MfaPolicy is the per-user multi-factor authentication strictness tier
type MfaPolicy string

const (
	MfaPolicyLow    MfaPolicy = "Low"
	MfaPolicyMedium MfaPolicy = "Medium"
	MfaPolicyHigh   MfaPolicy = "High"
)

// DefaultMfaPolicy is used when an imported value is not one of the known tiers
const DefaultMfaPolicy = MfaPolicyMedium

// MfaPolicyOptions lists the tiers in display order
var MfaPolicyOptions = []MfaPolicy{MfaPolicyLow, MfaPolicyMedium, MfaPolicyHigh}

// ValidMfaPolicies defines allowed MFA policy literals (case-sensitive)
var ValidMfaPolicies = map[MfaPolicy]bool{
	MfaPolicyLow:    true,
	MfaPolicyMedium: true,
	MfaPolicyHigh:   true,
}

// IsValid reports whether p is one of the three policy literals
func (p MfaPolicy) IsValid() bool {
	return ValidMfaPolicies[p]
}

// User represents a managed user account
type User struct {
	ID              string    `json:"id" validate:"required"`
	Username        string    `json:"username" validate:"required"`
	FirstName       string    `json:"firstName" validate:"required"`
	LastName        string    `json:"lastName" validate:"required"`
	Email           string    `json:"email" validate:"required,email"`
	Department      string    `json:"department" validate:"required"`
	MfaPolicy       MfaPolicy `json:"mfaPolicy" validate:"required,oneof=Low Medium High"`
	IdentityMapping string    `json:"identityMapping" validate:"required"`
}

// NewUser is a user record that has not been assigned an id yet.
// It is produced by the add form and by CSV ingestion.
type NewUser struct {
	Username        string    `json:"username" validate:"required"`
	FirstName       string    `json:"firstName" validate:"required"`
	LastName        string    `json:"lastName" validate:"required"`
	Email           string    `json:"email" validate:"required,email"`
	Department      string    `json:"department" validate:"required"`
	MfaPolicy       MfaPolicy `json:"mfaPolicy" validate:"required,oneof=Low Medium High"`
	IdentityMapping string    `json:"identityMapping" validate:"required"`
}

// WithID builds a full user record from n
func (n NewUser) WithID(id string) User {
	return User{
		ID:              id,
		Username:        n.Username,
		FirstName:       n.FirstName,
		LastName:        n.LastName,
		Email:           n.Email,
		Department:      n.Department,
		MfaPolicy:       n.MfaPolicy,
		IdentityMapping: n.IdentityMapping,
	}
}

// Field names a mutable user attribute, using the JSON names
type Field string

const (
	FieldUsername        Field = "username"
	FieldFirstName       Field = "firstName"
	FieldLastName        Field = "lastName"
	FieldEmail           Field = "email"
	FieldDepartment      Field = "department"
	FieldMfaPolicy       Field = "mfaPolicy"
	FieldIdentityMapping Field = "identityMapping"
)

// EditableFields lists the grid columns in display order
var EditableFields = []Field{
	FieldUsername,
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldDepartment,
	FieldMfaPolicy,
	FieldIdentityMapping,
}

// IsEditable reports whether f is one of the editable columns
func (f Field) IsEditable() bool {
	for _, e := range EditableFields {
		if e == f {
			return true
		}
	}
	return false
}

// Value returns the current value of field f
func (u *User) Value(f Field) (string, bool) {
	switch f {
	case FieldUsername:
		return u.Username, true
	case FieldFirstName:
		return u.FirstName, true
	case FieldLastName:
		return u.LastName, true
	case FieldEmail:
		return u.Email, true
	case FieldDepartment:
		return u.Department, true
	case FieldMfaPolicy:
		return string(u.MfaPolicy), true
	case FieldIdentityMapping:
		return u.IdentityMapping, true
	}
	return "", false
}

// UserPatch is a partial update. Nil fields are left untouched.
type UserPatch struct {
	Username        *string    `json:"username,omitempty"`
	FirstName       *string    `json:"firstName,omitempty"`
	LastName        *string    `json:"lastName,omitempty"`
	Email           *string    `json:"email,omitempty"`
	Department      *string    `json:"department,omitempty"`
	MfaPolicy       *MfaPolicy `json:"mfaPolicy,omitempty"`
	IdentityMapping *string    `json:"identityMapping,omitempty"`
}

// FieldPatch builds a patch that sets a single field
func FieldPatch(f Field, value string) (UserPatch, bool) {
	var p UserPatch
	switch f {
	case FieldUsername:
		p.Username = &value
	case FieldFirstName:
		p.FirstName = &value
	case FieldLastName:
		p.LastName = &value
	case FieldEmail:
		p.Email = &value
	case FieldDepartment:
		p.Department = &value
	case FieldMfaPolicy:
		policy := MfaPolicy(value)
		p.MfaPolicy = &policy
	case FieldIdentityMapping:
		p.IdentityMapping = &value
	default:
		return p, false
	}
	return p, true
}

// IsEmpty reports whether the patch changes nothing
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.FirstName == nil && p.LastName == nil &&
		p.Email == nil && p.Department == nil && p.MfaPolicy == nil && p.IdentityMapping == nil
}

// Apply merges the patch into u
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Department != nil {
		u.Department = *p.Department
	}
	if p.MfaPolicy != nil {
		u.MfaPolicy = *p.MfaPolicy
	}
	if p.IdentityMapping != nil {
		u.IdentityMapping = *p.IdentityMapping
	}
}
