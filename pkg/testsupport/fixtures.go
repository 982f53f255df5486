package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// UpdateGoldenEnv, when set to a non-empty value, makes CompareGolden rewrite
// golden files instead of comparing against them.
const UpdateGoldenEnv = "UPDATE_GOLDEN"

// LoadFixture reads a fixture file relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON reads a JSON fixture into dest.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadUsers reads a JSON array of users, e.g. testdata/users.json.
func LoadUsers(t testing.TB, path string) []User {
	t.Helper()

	var users []User
	LoadFixtureJSON(t, path, &users)
	return users
}

// StoreFromFixture returns a demo store seeded with the users in path instead
// of the built in ones.
func StoreFromFixture(t testing.TB, path string) *Store {
	t.Helper()
	return NewStoreWithUsers(LoadUsers(t, path)...)
}

// CompareGolden compares actual with the golden file at path. Missing golden
// files are created; set UPDATE_GOLDEN to rewrite existing ones.
func CompareGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	switch {
	case os.Getenv(UpdateGoldenEnv) != "":
		writeGolden(t, path, actual)
		return
	case os.IsNotExist(err):
		t.Logf("golden file %s does not exist, creating it", path)
		writeGolden(t, path, actual)
		return
	case err != nil:
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// CompareGoldenJSON is CompareGolden over the indented JSON form of actual.
func CompareGoldenJSON(t testing.TB, path string, actual any) {
	t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal JSON for golden file %s: %v", path, err)
	}
	CompareGolden(t, path, append(data, '\n'))
}

func writeGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// FixturePath returns the path of a fixture in the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath returns the path of a golden file in testdata/golden.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
