// Package seed fills an empty collection with demo users.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/repository"
)

// BaseUsers are always loaded first and keep their fixed ids
var BaseUsers = []models.User{
	{ID: "1", Username: "asmith", FirstName: "Alice", LastName: "Smith", Email: "alice.smith@example.com", Department: "Cardiology", MfaPolicy: models.MfaPolicyHigh, IdentityMapping: "AD:asmith"},
	{ID: "2", Username: "bjohnson", FirstName: "Bob", LastName: "Johnson", Email: "bob.johnson@example.com", Department: "Pediatrics", MfaPolicy: models.MfaPolicyMedium, IdentityMapping: "LDAP:bjohnson"},
	{ID: "3", Username: "cwilliams", FirstName: "Carol", LastName: "Williams", Email: "carol.williams@example.com", Department: "Oncology", MfaPolicy: models.MfaPolicyLow, IdentityMapping: "AD:cwilliams"},
	{ID: "4", Username: "davisj", FirstName: "David", LastName: "Davis", Email: "david.davis@example.com", Department: "Neurology", MfaPolicy: models.MfaPolicyMedium, IdentityMapping: "INTERNAL:davisj"},
	{ID: "5", Username: "emartin", FirstName: "Emily", LastName: "Martin", Email: "emily.martin@example.com", Department: "Radiology", MfaPolicy: models.MfaPolicyHigh, IdentityMapping: "AD:emartin"},
}

var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
		"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
		"Thomas", "Sarah", "Charles", "Karen", "Daniel", "Nancy", "Matthew", "Lisa",
	}
	lastNames = []string{
		"Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez", "Hernandez",
		"Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Martin",
		"Jackson", "Thompson", "White", "Harris", "Sanchez", "Clark", "Ramirez", "Lewis",
	}
	departments = []string{
		"Cardiology", "Pediatrics", "Oncology", "Neurology", "Radiology", "Surgery",
		"Emergency", "Internal Medicine", "Orthopedics", "Pharmacy", "Psychiatry",
		"Dermatology", "Urology", "Ophthalmology", "Anesthesiology", "Pathology",
		"Physical Therapy", "Nutrition", "Human Resources", "IT Support",
	}
)

// Generator produces sample users with unique usernames and emails
type Generator struct {
	rng       *rand.Rand
	usernames map[string]bool
	emails    map[string]bool
}

// NewGenerator creates a generator that avoids the names already in existing
func NewGenerator(rng *rand.Rand, existing []models.User) *Generator {
	g := &Generator{
		rng:       rng,
		usernames: make(map[string]bool),
		emails:    make(map[string]bool),
	}
	for _, u := range existing {
		g.usernames[u.Username] = true
		g.emails[u.Email] = true
	}
	return g
}

// Users returns up to count sample users. Fewer are returned if unique
// names cannot be found within a bounded number of attempts.
func (g *Generator) Users(count int) []models.NewUser {
	users := make([]models.NewUser, 0, count)
	attempts := 0
	for len(users) < count && attempts < count*5 {
		attempts++
		first := firstNames[g.rng.IntN(len(firstNames))]
		last := lastNames[g.rng.IntN(len(lastNames))]

		username := fmt.Sprintf("%c%s%d", strings.ToLower(first)[0], strings.ToLower(last), g.rng.IntN(1000))
		email := fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), g.rng.IntN(1000))
		if g.usernames[username] || g.emails[email] {
			continue
		}
		g.usernames[username] = true
		g.emails[email] = true

		provider := "AD"
		if g.rng.IntN(2) == 1 {
			provider = "LDAP"
		}
		users = append(users, models.NewUser{
			Username:        username,
			FirstName:       first,
			LastName:        last,
			Email:           email,
			Department:      departments[g.rng.IntN(len(departments))],
			MfaPolicy:       models.MfaPolicyOptions[g.rng.IntN(len(models.MfaPolicyOptions))],
			IdentityMapping: provider + ":" + username,
		})
	}
	return users
}

// Load inserts the base users and sample generated users into an empty repository.
// A repository that already holds users is left alone.
func Load(ctx context.Context, repo repository.UserRepository, samples int, rng *rand.Rand) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for _, u := range BaseUsers {
		if err := repo.Insert(ctx, u); err != nil {
			return 0, fmt.Errorf("failed to insert base user %s: %w", u.Username, err)
		}
	}
	created, err := repo.BatchInsert(ctx, NewGenerator(rng, BaseUsers).Users(samples))
	if err != nil {
		return 0, fmt.Errorf("failed to insert sample users: %w", err)
	}
	return len(BaseUsers) + len(created), nil
}
