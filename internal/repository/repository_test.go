package repository_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/repository"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%d", n)
	}
}

func newUser(username, department string, policy models.MfaPolicy) models.NewUser {
	return models.NewUser{
		Username:        username,
		FirstName:       "First " + username,
		LastName:        "Last " + username,
		Email:           username + "@example.com",
		Department:      department,
		MfaPolicy:       policy,
		IdentityMapping: "AD:" + username,
	}
}

func seededRepo(t *testing.T, n int) repository.UserRepository {
	t.Helper()
	repo := repository.NewUserRepoWithIDs(sequentialIDs())
	departments := []string{"Cardiology", "Pediatrics", "Oncology"}
	for i := 0; i < n; i++ {
		_, err := repo.Create(context.Background(), newUser(fmt.Sprintf("user%d", i), departments[i%3], models.MfaPolicyLow))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	return repo
}

func TestUserRepo_CreateAssignsUniqueIDs(t *testing.T) {
	repo := repository.NewUserRepo()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		user, err := repo.Create(ctx, newUser(fmt.Sprintf("u%d", i), "IT Support", models.MfaPolicyHigh))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if user.ID == "" {
			t.Fatal("Expected an id to be assigned")
		}
		if seen[user.ID] {
			t.Fatalf("Duplicate id %s", user.ID)
		}
		seen[user.ID] = true
	}

	count, _ := repo.Count(ctx)
	if count != 100 {
		t.Errorf("Expected 100 users, got %d", count)
	}
}

func TestUserRepo_BatchInsertKeepsOrder(t *testing.T) {
	repo := repository.NewUserRepoWithIDs(sequentialIDs())
	ctx := context.Background()

	created, err := repo.BatchInsert(ctx, []models.NewUser{
		newUser("a", "Cardiology", models.MfaPolicyLow),
		newUser("b", "Cardiology", models.MfaPolicyLow),
		newUser("c", "Cardiology", models.MfaPolicyLow),
	})
	if err != nil {
		t.Fatalf("BatchInsert failed: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Expected 3 created, got %d", len(created))
	}

	users, _ := repo.List(ctx)
	for i, want := range []string{"a", "b", "c"} {
		if users[i].Username != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, users[i].Username)
		}
	}
}

func TestUserRepo_InsertRejectsDuplicateID(t *testing.T) {
	repo := repository.NewUserRepo()
	ctx := context.Background()

	user := newUser("asmith", "Cardiology", models.MfaPolicyHigh).WithID("1")
	if err := repo.Insert(ctx, user); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.Insert(ctx, user); !errors.Is(err, repository.ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}
}

func TestUserRepo_PatchOnlyTouchesSetFields(t *testing.T) {
	repo := seededRepo(t, 3)
	ctx := context.Background()

	before, _ := repo.GetByID(ctx, "2")
	email := "new@example.com"
	after, err := repo.Patch(ctx, "2", models.UserPatch{Email: &email})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}

	want := *before
	want.Email = email
	if !reflect.DeepEqual(*after, want) {
		t.Errorf("Patch result mismatch:\n got %+v\nwant %+v", *after, want)
	}

	if _, err := repo.Patch(ctx, "missing", models.UserPatch{Email: &email}); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepo_BulkPatchLeavesOthersUntouched(t *testing.T) {
	repo := seededRepo(t, 6)
	ctx := context.Background()

	before, _ := repo.List(ctx)
	dept := "X"
	updated, err := repo.BulkPatch(ctx, []string{"1", "3", "3", "99"}, models.UserPatch{Department: &dept})
	if err != nil {
		t.Fatalf("BulkPatch failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("Expected 2 updated, got %d", updated)
	}

	after, _ := repo.List(ctx)
	for i := range after {
		switch after[i].ID {
		case "1", "3":
			if after[i].Department != "X" {
				t.Errorf("User %s: expected department X, got %s", after[i].ID, after[i].Department)
			}
			want := before[i]
			want.Department = "X"
			if after[i] != want {
				t.Errorf("User %s: unexpected change %+v", after[i].ID, after[i])
			}
		default:
			if after[i] != before[i] {
				t.Errorf("User %s should be unchanged", after[i].ID)
			}
		}
	}
}

func TestUserRepo_Delete(t *testing.T) {
	repo := seededRepo(t, 5)
	ctx := context.Background()

	removed, err := repo.Delete(ctx, []string{"2", "4", "42"})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	ids, _ := repo.GetAllIDs(ctx)
	if !reflect.DeepEqual(ids, []string{"1", "3", "5"}) {
		t.Errorf("Unexpected remaining ids: %v", ids)
	}

	// index must follow the compacted slice
	email := "five@example.com"
	user, err := repo.Patch(ctx, "5", models.UserPatch{Email: &email})
	if err != nil {
		t.Fatalf("Patch after delete failed: %v", err)
	}
	if user.Username != "user4" {
		t.Errorf("Patched wrong record: %+v", user)
	}
	if exists, _ := repo.Exists(ctx, "2"); exists {
		t.Error("Deleted user should not exist")
	}
}

func TestUserRepo_Departments(t *testing.T) {
	repo := seededRepo(t, 7)
	ctx := context.Background()

	departments, _ := repo.Departments(ctx)
	want := []string{"Cardiology", "Oncology", "Pediatrics"}
	if !reflect.DeepEqual(departments, want) {
		t.Errorf("Expected %v, got %v", want, departments)
	}

	empty := repository.NewUserRepo()
	departments, _ = empty.Departments(ctx)
	if len(departments) != 0 {
		t.Errorf("Expected no departments, got %v", departments)
	}
}

func TestUserRepo_ListIsSnapshot(t *testing.T) {
	repo := seededRepo(t, 2)
	ctx := context.Background()

	users, _ := repo.List(ctx)
	users[0].Username = "mutated"

	stored, _ := repo.GetByID(ctx, "1")
	if stored.Username == "mutated" {
		t.Error("List should return a copy of the collection")
	}
}

func TestUserRepo_StreamAll(t *testing.T) {
	repo := seededRepo(t, 10)
	ctx := context.Background()

	count := 0
	err := repo.StreamAll(ctx, func(user *models.User) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("StreamAll failed: %v", err)
	}
	if count != 10 {
		t.Errorf("Expected 10 users streamed, got %d", count)
	}

	stop := errors.New("stop")
	err = repo.StreamAll(ctx, func(user *models.User) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("Expected callback error to propagate, got %v", err)
	}
}

func TestImportRepo_ErrorsAndHistory(t *testing.T) {
	repo := repository.NewImportRepo()
	ctx := context.Background()

	repo.Create(ctx, &models.ImportRecord{ID: "imp-1", Status: models.ImportStatusCompleted})
	repo.Create(ctx, &models.ImportRecord{ID: "imp-2", Status: models.ImportStatusFailed})

	err := repo.AddErrors(ctx, "imp-1", []models.ValidationError{
		{Line: 2, Field: "email", Message: "missing required value: email"},
		{Line: 5, Field: "mfaPolicy", Message: "coerced", Value: "high"},
	})
	if err != nil {
		t.Fatalf("AddErrors failed: %v", err)
	}
	if err := repo.AddErrors(ctx, "nope", []models.ValidationError{{Line: 1}}); !errors.Is(err, repository.ErrImportNotFound) {
		t.Errorf("Expected ErrImportNotFound, got %v", err)
	}

	all, _ := repo.GetErrors(ctx, "imp-1", 0)
	if len(all) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(all))
	}
	limited, _ := repo.GetErrors(ctx, "imp-1", 1)
	if len(limited) != 1 {
		t.Errorf("Expected 1 error with limit, got %d", len(limited))
	}

	history, _ := repo.List(ctx)
	if len(history) != 2 || history[0].ID != "imp-2" {
		t.Errorf("Expected newest first, got %+v", history)
	}

	missing, err := repo.GetByID(ctx, "unknown")
	if err != nil || missing != nil {
		t.Errorf("Expected nil record for unknown id, got %v, %v", missing, err)
	}
}
