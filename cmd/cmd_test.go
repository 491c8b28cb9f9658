package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notegraph/internal/db"
	"notegraph/internal/graph"
	"notegraph/internal/orchestrate"
	apperrors "notegraph/pkg/errors"
)

// constProvider embeds every text as the same vector
type constProvider struct{ calls int }

func (p *constProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	return []float32{1, 0}, nil
}

func (p *constProvider) Model() string { return "m" }

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenDB(filepath.Join(t.TempDir(), "notegraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func mustParse(t *testing.T, owner, input string) []db.Note {
	t.Helper()
	notes, err := parseNotes(strings.NewReader(input), owner)
	require.NoError(t, err)
	return notes
}

func TestParseNotes(t *testing.T) {
	input := `
notes:
  - id: n1
    title: "  Sourdough starter  "
    content: Feed it daily.
    updated_at: 2024-05-01T10:00:00Z
  - title: Baking schedule
    content: |
      Mix at night,
      bake in the morning.
`
	notes, err := parseNotes(strings.NewReader(input), "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	assert.Equal(t, "n1", notes[0].ID)
	assert.Equal(t, "Sourdough starter", notes[0].Title)
	assert.Equal(t, "u1", notes[0].OwnerID)
	assert.Equal(t, int64(1714557600000), notes[0].UpdatedAt)
	assert.Zero(t, notes[0].CreatedAt, "left for the store to default")

	assert.Len(t, notes[1].ID, 36, "missing ids are generated")
	assert.Equal(t, "Mix at night,\nbake in the morning.\n", notes[1].Content)
}

func TestParseNotes_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing title", "notes:\n  - id: a\n    content: x\n", "title is required"},
		{"duplicate id", "notes:\n  - id: a\n    title: A\n  - id: a\n    title: B\n", "duplicate id"},
		{"malformed yaml", "notes: [", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseNotes(strings.NewReader(tt.input), "u1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseNotes_Empty(t *testing.T) {
	notes, err := parseNotes(strings.NewReader(""), "u1")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestImportNotes_EditedNoteIsReembedded(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	provider := &constProvider{}
	rebuilder := orchestrate.NewRebuilder(d, provider, orchestrate.DefaultConfig())

	first := "notes:\n  - id: n1\n    title: Starter\n    content: Feed daily.\n    updated_at: 2024-05-01T10:00:00Z\n"
	res, err := importNotes(ctx, d, "u1", mustParse(t, "u1", first))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)

	report, err := rebuilder.Rebuild(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, report.NotesEmbedded)

	// embeddings are stamped in milliseconds; step past the rebuild's stamp
	time.Sleep(5 * time.Millisecond)

	edited := "notes:\n  - id: n1\n    title: Starter\n    content: Feed twice a day.\n    updated_at: 2024-05-01T10:00:00Z\n"
	res, err = importNotes(ctx, d, "u1", mustParse(t, "u1", edited))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)

	report, err = rebuilder.Rebuild(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.NotesEmbedded, "edited content must be re-embedded")
	require.Len(t, report.Results, 1)
	assert.Equal(t, graph.StaleOutdated, report.Results[0].Reason)
	assert.Equal(t, 2, provider.calls)

	// re-importing the same text leaves the embedding current
	res, err = importNotes(ctx, d, "u1", mustParse(t, "u1", edited))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Written)
	assert.Equal(t, 1, res.Unchanged)
}

func TestImportNotes_ForeignIDReported(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	input := "notes:\n  - id: shared\n    title: Shared\n  - id: own\n    title: Own\n"
	res, err := importNotes(ctx, d, "u2", mustParse(t, "u2", "notes:\n  - id: shared\n    title: Theirs\n"))
	require.NoError(t, err)
	require.Equal(t, 1, res.Written)

	res, err = importNotes(ctx, d, "u1", mustParse(t, "u1", input))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written, "only the note u1 can own is written")
	assert.Equal(t, []string{"shared"}, res.Conflicts)

	mine, err := d.GetOwnedNote(ctx, "u1", "shared")
	require.NoError(t, err)
	assert.Nil(t, mine)
	theirs, err := d.GetOwnedNote(ctx, "u2", "shared")
	require.NoError(t, err)
	require.NotNil(t, theirs)
	assert.Equal(t, "Theirs", theirs.Title)
}

func TestDiscoverDB_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, dbFileName), nil, 0o644))

	t.Chdir(nested)
	t.Setenv("HOME", t.TempDir())
	cfg, dbPath = nil, ""

	got, err := DiscoverDB()
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(filepath.Join(root, dbFileName))
	gotResolved, _ := filepath.EvalSymlinks(got)
	assert.Equal(t, want, gotResolved)
}

func TestDiscoverDB_FlagWins(t *testing.T) {
	cfg = nil
	dbPath = "/tmp/explicit.db"
	t.Cleanup(func() { dbPath = "" })

	got, err := DiscoverDB()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.db", got)
}

func TestResolveNote(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	for _, n := range []db.Note{
		{ID: "3f2a9c10-aaaa", OwnerID: "u1", Title: "Sourdough starter"},
		{ID: "3f2a9c20-bbbb", OwnerID: "u1", Title: "Sourdough pizza"},
		{ID: "7b1e0000-cccc", OwnerID: "u1", Title: "Garden plan"},
		{ID: "7b1e0001-eeee", OwnerID: "u1", Title: "Garden plan"},
		{ID: "9999aaaa-dddd", OwnerID: "u2", Title: "Garden tools"},
	} {
		require.NoError(t, d.PutNote(ctx, n))
	}

	tests := []struct {
		name    string
		ref     string
		wantID  string
		wantErr string
	}{
		{"exact id", "7b1e0000-cccc", "7b1e0000-cccc", ""},
		{"unique prefix", "3f2a9c1", "3f2a9c10-aaaa", ""},
		{"ambiguous prefix", "3f2a9c", "", "ambiguous reference"},
		{"title, case-insensitive", "sourdough PIZZA", "3f2a9c20-bbbb", ""},
		{"partial title is not a match", "sourdough", "", "not found"},
		{"duplicate titles", "garden plan", "", "ambiguous reference"},
		{"other owner's id", "9999aaaa-dddd", "", "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveNote(ctx, d, "u1", tt.ref)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	_, err := resolveNote(ctx, d, "u1", "nothing matches this")
	assert.True(t, apperrors.IsNotFound(err))
}
