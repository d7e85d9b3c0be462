package vault

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/storage"
	"github.com/starford/linkpeek/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testVault(t *testing.T, files map[string]string) (*Vault, string) {
	t.Helper()
	dir, store := testutil.TestVault(t)
	for rel, content := range files {
		testutil.WriteFile(t, dir, rel, content)
	}
	v := New(store, quietLogger())
	if err := v.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return v, dir
}

func TestResolve(t *testing.T) {
	v, _ := testVault(t, map[string]string{
		"Inbox.md":               "# Inbox",
		"projects/Plan.md":       "# Plan",
		"archive/Plan.md":        "# Old plan",
		"archive/2023/Plan.md":   "# Older plan",
		"people/Ada.md":          "---\naliases: [Countess, Ada L]\n---\n# Ada",
		"assets/diagram.png":     "png",
		".obsidian/workspace.md": "hidden",
	})

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"exact path", "projects/Plan.md", "projects/Plan.md"},
		{"implied extension", "Inbox", "Inbox.md"},
		{"case insensitive", "inbox", "Inbox.md"},
		{"shortest basename wins", "Plan", "archive/Plan.md"},
		{"partial path", "2023/Plan", "archive/2023/Plan.md"},
		{"partial path with extension", "projects/Plan.md", "projects/Plan.md"},
		{"asset by name", "diagram.png", "assets/diagram.png"},
		{"alias", "Countess", "people/Ada.md"},
		{"alias case insensitive", "ada l", "people/Ada.md"},
		{"leading slash", "/Inbox", "Inbox.md"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.Resolve(tc.in)
			assert.NilError(t, err)
			assert.Equal(t, got, tc.want)
		})
	}
}

func TestResolveUnresolved(t *testing.T) {
	v, _ := testVault(t, map[string]string{"Inbox.md": "# Inbox"})

	for _, in := range []string{"Missing", "", "  ", "workspace", "other/Inbox"} {
		_, err := v.Resolve(in)
		if !errors.Is(err, apperr.ErrUnresolvedResource) {
			t.Errorf("Resolve(%q) err = %v, want ErrUnresolvedResource", in, err)
		}
	}
}

func TestRefreshPicksUpChanges(t *testing.T) {
	v, dir := testVault(t, map[string]string{"a.md": "# A"})
	assert.Equal(t, v.Len(), 1)

	testutil.WriteFile(t, dir, "a.md", "---\nalias: Alpha\n---\n# A")
	testutil.WriteFile(t, dir, "b.md", "# B")
	assert.NilError(t, v.Refresh())
	assert.Equal(t, v.Len(), 2)

	got, err := v.Resolve("Alpha")
	assert.NilError(t, err)
	assert.Equal(t, got, "a.md")

	if err := os.Remove(dir + "/b.md"); err != nil {
		t.Fatal(err)
	}
	assert.NilError(t, v.Refresh())
	_, err = v.Resolve("b")
	assert.Assert(t, errors.Is(err, apperr.ErrUnresolvedResource))
}

func TestSuggest(t *testing.T) {
	v, _ := testVault(t, map[string]string{
		"Meeting notes.md":   "",
		"projects/Meetup.md": "",
		"Recipes.md":         "",
	})

	got := v.Suggest("meet", 5)
	assert.Equal(t, len(got), 2)
	for _, p := range got {
		assert.Assert(t, p != "Recipes.md", "unexpected suggestion %q", p)
	}

	assert.Equal(t, len(v.Suggest("meet", 1)), 1)
	assert.Assert(t, v.Suggest("", 5) == nil)
	assert.Assert(t, v.Suggest("meet", 0) == nil)
}

func TestResolveSkipsIgnoredFolders(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "templates/Meeting.md", "---\naliases: [Standup]\n---\n")
	testutil.WriteFile(t, dir, "work/Meeting.md", "# Meeting")
	store, err := storage.NewFS(dir, storage.WithIgnore("templates"))
	assert.NilError(t, err)

	v := New(store, quietLogger())
	assert.NilError(t, v.Refresh())

	got, err := v.Resolve("Meeting")
	assert.NilError(t, err)
	assert.Equal(t, got, "work/Meeting.md")

	_, err = v.Resolve("Standup")
	assert.Assert(t, errors.Is(err, apperr.ErrUnresolvedResource))
	_, err = v.Resolve("templates/Meeting")
	assert.Assert(t, errors.Is(err, apperr.ErrUnresolvedResource))
}

func TestTitleAndFragments(t *testing.T) {
	v, _ := testVault(t, map[string]string{
		"Titled.md":    "---\ntitle: Custom\n---\n# Heading One\ntext ^blk-1\n## Details\n",
		"Untitled.md":  "plain text",
		"img/shot.png": "png",
	})

	assert.Equal(t, v.Title("Titled.md"), "Custom")
	assert.Equal(t, v.Title("Untitled.md"), "Untitled")
	assert.Equal(t, v.Title("gone/Missing.md"), "Missing")

	cases := []struct {
		path, fragment string
		want           bool
	}{
		{"Titled.md", "Heading One", true},
		{"Titled.md", "details", true},
		{"Titled.md", "^blk-1", true},
		{"Titled.md", "^BLK-1", true},
		{"Titled.md", "^missing", false},
		{"Titled.md", "Nope", false},
		{"Untitled.md", "Anything", false},
		{"img/shot.png", "x", false},
		{"Missing.md", "x", false},
	}
	for _, tc := range cases {
		assert.Equal(t, v.HasFragment(tc.path, tc.fragment), tc.want, "%s#%s", tc.path, tc.fragment)
	}
}
