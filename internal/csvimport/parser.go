// Package csvimport turns uploaded user CSV text into user records.
//
// Lines are split on "\n" and fields on ","; quoted fields are not
// interpreted. Columns are matched by normalized header name, so the
// column order in the file does not matter.
package csvimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/user-admin-api/internal/models"
)

// RequiredHeaders are the normalized header tokens every file must carry
var RequiredHeaders = []string{
	"username",
	"firstname",
	"lastname",
	"email",
	"department",
	"mfapolicy",
	"identitymapping",
}

// FormatError means the file as a whole cannot be imported
type FormatError struct {
	Reason         string
	MissingHeaders []string
}

func (e *FormatError) Error() string {
	if len(e.MissingHeaders) > 0 {
		return fmt.Sprintf("missing required CSV headers: %s. Expected: %s",
			strings.Join(e.MissingHeaders, ", "), strings.Join(RequiredHeaders, ", "))
	}
	return e.Reason
}

// NoticeKind classifies a per-row notice
type NoticeKind string

const (
	// NoticeRowSkipped: a required value was empty, the row was dropped
	NoticeRowSkipped NoticeKind = "row_skipped"
	// NoticeMfaCoerced: the MFA policy was unknown and replaced by the default
	NoticeMfaCoerced NoticeKind = "mfa_policy_coerced"
)

// Notice is a soft, per-row problem. It never aborts the import.
type Notice struct {
	Line    int        `json:"line"`
	Kind    NoticeKind `json:"kind"`
	Field   string     `json:"field"`
	Value   string     `json:"value,omitempty"`
	Message string     `json:"message"`
}

// Result is the outcome of a successful parse
type Result struct {
	Users   []models.NewUser
	Rows    int
	Skipped int
	Coerced int
	Notices []Notice
}

type column struct {
	header string
	set    func(u *models.NewUser, v string)
}

// columns binds each normalized header token to a typed field setter
var columns = map[string]column{
	"username":        {"username", func(u *models.NewUser, v string) { u.Username = v }},
	"firstname":       {"firstName", func(u *models.NewUser, v string) { u.FirstName = v }},
	"lastname":        {"lastName", func(u *models.NewUser, v string) { u.LastName = v }},
	"email":           {"email", func(u *models.NewUser, v string) { u.Email = v }},
	"department":      {"department", func(u *models.NewUser, v string) { u.Department = v }},
	"mfapolicy":       {"mfaPolicy", func(u *models.NewUser, v string) { u.MfaPolicy = models.MfaPolicy(v) }},
	"identitymapping": {"identityMapping", func(u *models.NewUser, v string) { u.IdentityMapping = v }},
}

type binding struct {
	index int
	token string
}

// NormalizeHeader case-folds a header token and strips all whitespace
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), "")
}

// ParseReader reads the whole input and parses it.
// Nothing is parsed until the reader is exhausted.
func ParseReader(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV content: %w", err)
	}
	return Parse(string(data))
}

// Parse converts CSV text into new user records
func Parse(text string) (*Result, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil, &FormatError{Reason: "CSV file must contain a header row and at least one data row."}
	}

	bindings, err := bindHeader(lines[0])
	if err != nil {
		return nil, err
	}

	result := &Result{Users: make([]models.NewUser, 0, len(lines)-1)}
	for i := 1; i < len(lines); i++ {
		lineNum := i + 1
		result.Rows++

		values := make(map[string]string, len(RequiredHeaders))
		fields := strings.Split(lines[i], ",")
		for _, b := range bindings {
			v := ""
			if b.index < len(fields) {
				v = strings.TrimSpace(fields[b.index])
			}
			values[b.token] = v
		}

		var missing []string
		for _, token := range RequiredHeaders {
			if values[token] == "" {
				missing = append(missing, columns[token].header)
			}
		}
		if len(missing) > 0 {
			result.Skipped++
			result.Notices = append(result.Notices, Notice{
				Line:    lineNum,
				Kind:    NoticeRowSkipped,
				Field:   strings.Join(missing, ","),
				Message: "missing required value: " + strings.Join(missing, ", "),
			})
			continue
		}

		var user models.NewUser
		for _, token := range RequiredHeaders {
			columns[token].set(&user, values[token])
		}

		if !user.MfaPolicy.IsValid() {
			result.Coerced++
			result.Notices = append(result.Notices, Notice{
				Line:    lineNum,
				Kind:    NoticeMfaCoerced,
				Field:   "mfaPolicy",
				Value:   string(user.MfaPolicy),
				Message: fmt.Sprintf("invalid MFA policy %q, defaulted to %s", user.MfaPolicy, models.DefaultMfaPolicy),
			})
			user.MfaPolicy = models.DefaultMfaPolicy
		}

		result.Users = append(result.Users, user)
	}

	return result, nil
}

func bindHeader(line string) ([]binding, error) {
	seen := make(map[string]bool, len(RequiredHeaders))
	var bindings []binding
	for i, h := range strings.Split(line, ",") {
		token := NormalizeHeader(h)
		if _, ok := columns[token]; !ok {
			continue
		}
		seen[token] = true
		bindings = append(bindings, binding{index: i, token: token})
	}

	var missing []string
	for _, token := range RequiredHeaders {
		if !seen[token] {
			missing = append(missing, token)
		}
	}
	if len(missing) > 0 {
		return nil, &FormatError{Reason: "missing required CSV headers", MissingHeaders: missing}
	}
	return bindings, nil
}
