package validation

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/user-admin-api/internal/csvimport"
	"github.com/user-admin-api/internal/models"
)

func testdataPath(t *testing.T, filename string) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(currentFile)))
	path := filepath.Join(projectRoot, "testdata", filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("testdata file not found: %s", path)
	}
	return path
}

// Rows accepted by the importer are not email-checked; this reports which
// of them the add form would still refuse.
func TestValidateNewUser_ImportedCSVData(t *testing.T) {
	file, err := os.Open(testdataPath(t, "users.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	result, err := csvimport.ParseReader(file)
	if err != nil {
		t.Fatal(err)
	}

	validator := NewValidator()
	totalFailed := 0
	for i := range result.Users {
		errs := validator.ValidateNewUser(&result.Users[i])
		if len(errs) > 0 {
			totalFailed++
			t.Logf("Record %s: %d errors", result.Users[i].Username, len(errs))
		}
		if !result.Users[i].MfaPolicy.IsValid() {
			t.Errorf("Record %s: policy %q should have been coerced", result.Users[i].Username, result.Users[i].MfaPolicy)
		}
	}

	if totalFailed != 0 {
		t.Errorf("Expected every accepted row of the fixture to validate, %d failed", totalFailed)
	}
	t.Logf("Validated %d accepted records (%d rows, %d skipped)", len(result.Users), result.Rows, result.Skipped)
}

func TestValidateUser_AfterCoercion(t *testing.T) {
	result, err := csvimport.Parse("username,firstName,lastName,email,department,mfaPolicy,identityMapping\n" +
		"jdoe,John,Doe,not-an-email,Cardiology,Extreme,AD:jdoe\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Users) != 1 {
		t.Fatalf("Expected 1 accepted row, got %d", len(result.Users))
	}

	user := result.Users[0].WithID("1")
	errs := NewValidator().ValidateUser(&user)
	if len(errs) != 1 || errs[0].Field != "email" {
		t.Errorf("Expected only an email error, got %+v", errs)
	}
	if user.MfaPolicy != models.DefaultMfaPolicy {
		t.Errorf("Expected policy %s, got %s", models.DefaultMfaPolicy, user.MfaPolicy)
	}
}
