package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if result := LoadFixture(t, testFile); string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadUsers(t *testing.T) {
	users := LoadUsers(t, FixturePath("users.json"))
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	if users[2] != (User{ID: 7, Name: "Grace Hopper"}) {
		t.Errorf("unexpected user %+v", users[2])
	}
}

func TestStoreFromFixture(t *testing.T) {
	store := StoreFromFixture(t, FixturePath("users.json"))

	if u, ok := store.User(7); !ok || u.Name != "Grace Hopper" {
		t.Errorf("expected seeded user 7, got %+v %v", u, ok)
	}
	if _, ok := store.User(3); ok {
		t.Error("fixture store should not contain the built in users")
	}

	created, err := store.createUser(context.Background(), CreateUserInput{Name: "Dana"})
	if err != nil {
		t.Fatalf("createUser: %v", err)
	}
	if created.ID != 8 {
		t.Errorf("expected id after the highest seeded one, got %d", created.ID)
	}
}

func TestCompareGolden(t *testing.T) {
	t.Setenv(UpdateGoldenEnv, "")
	path := filepath.Join(t.TempDir(), "golden", "out.golden")

	// first run creates the file
	CompareGolden(t, path, []byte("hello"))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("golden file not created: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("unexpected golden content %q", data)
	}

	CompareGolden(t, path, []byte("hello"))
}

func TestCompareGolden_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.golden")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(UpdateGoldenEnv, "1")
	CompareGolden(t, path, []byte("new"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("expected golden file to be rewritten, got %q", data)
	}
}

func TestCompareGoldenJSON(t *testing.T) {
	t.Setenv(UpdateGoldenEnv, "")
	path := filepath.Join(t.TempDir(), "user.json")

	CompareGoldenJSON(t, path, User{ID: 1, Name: "Alice Johnson"})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"id\": 1,\n  \"name\": \"Alice Johnson\"\n}\n"
	if string(data) != want {
		t.Errorf("unexpected JSON golden %q", data)
	}
}

func TestPaths(t *testing.T) {
	if got := FixturePath("users.json"); got != filepath.Join("testdata", "users.json") {
		t.Errorf("FixturePath() = %q", got)
	}
	if got := GoldenPath("demo_router.golden"); got != filepath.Join("testdata", "golden", "demo_router.golden") {
		t.Errorf("GoldenPath() = %q", got)
	}
}
