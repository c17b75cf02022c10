package content

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()
	c := Default()
	require.Equal(t, 2, c.LessonCount())

	l, ok := c.Lesson(0)
	require.True(t, ok)
	require.Equal(t, "Lesson 1: The Creation", l.Title)
	require.Len(t, l.Questions, 2)

	_, ok = c.Lesson(2)
	require.False(t, ok)
	_, ok = c.Lesson(-1)
	require.False(t, ok)

	for i := 0; i < 20; i++ {
		require.True(t, slices.Contains(c.Verses, c.RandomVerse()))
	}
	require.Contains(t, c.Donation.Text(), "Account Number: 0751609016")
}

func TestLoadOverride(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw := `
lessons:
  - title: "Only"
    body: "Read this"
verses: ["Psalm 1:1"]
donation: {bank: B, account_name: N, account_number: "1"}
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.LessonCount())
	require.Empty(t, c.Lessons[0].Questions)
	require.Equal(t, "Psalm 1:1", c.RandomVerse())
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "no lessons", raw: "verses: [a]\ndonation: {bank: B, account_name: N, account_number: '1'}\n", want: "Lessons"},
		{name: "empty question", raw: "lessons: [{title: t, body: b, questions: ['']}]\nverses: [a]\ndonation: {bank: B, account_name: N, account_number: '1'}\n", want: "Questions"},
		{name: "unknown field", raw: "lesson: []\n", want: "decode"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	t.Parallel()
	c, err := Load("  ")
	require.NoError(t, err)
	require.Equal(t, Default().Lessons, c.Lessons)
}
