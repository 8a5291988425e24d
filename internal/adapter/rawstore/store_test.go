package rawstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "raw"), filepath.Join(dir, "raw", "details"))
}

func TestPagePath(t *testing.T) {
	s := New("raw", "raw/details")
	assert.Equal(t, filepath.Join("raw", "yelp_search_offset_000.json"), s.PagePath(0))
	assert.Equal(t, filepath.Join("raw", "yelp_search_offset_050.json"), s.PagePath(50))
	assert.Equal(t, filepath.Join("raw", "yelp_search_offset_1000.json"), s.PagePath(1000))
}

func TestDetailPath_RejectsUnsafeIDs(t *testing.T) {
	s := New("raw", "raw/details")
	for _, id := range []string{"", "../etc", "a/b", ".hidden"} {
		_, err := s.DetailPath(id)
		assert.Error(t, err, id)
	}

	path, err := s.DetailPath("biz-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("raw", "details", "biz-1.json"), path)
}

func TestBusinesses_ReadsPagesInNameOrder(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.WritePage(50, []byte(`{"businesses":[{"id":"b"}],"total":3}`)))
	require.NoError(t, s.WritePage(0, []byte(`{"businesses":[{"id":"a"},{"id":"c"}],"total":3}`)))

	got, err := s.Businesses()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "b", got[2].ID)
}

func TestBusinesses_NoPages(t *testing.T) {
	s := newStore(t)
	_, err := s.Businesses()
	assert.ErrorIs(t, err, ErrNoRawDocuments)
}

func TestBusinesses_MalformedPage(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.WritePage(0, []byte(`{not json`)))

	_, err := s.Businesses()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yelp_search_offset_000.json")
}

func TestBusinesses_BadScalarDropsOnlyThatValue(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"string rating", `{"id":"bad","rating":"four"}`},
		{"fractional review count", `{"id":"bad","review_count":12.5}`},
		{"quoted closed flag", `{"id":"bad","is_closed":"nope"}`},
		{"object coordinates field", `{"id":"bad","coordinates":{"latitude":{"x":1}}}`},
		{"location as string", `{"id":"bad","location":"Orlando"}`},
		{"listing not an object", `"bad"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			page := `{"businesses":[{"id":"good","rating":4.5,"review_count":10,"is_closed":false},` + tt.bad + `],"total":2}`
			require.NoError(t, s.WritePage(0, []byte(page)))

			got, err := s.Businesses()
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "good", got[0].ID)
			require.NotNil(t, got[0].Rating)
			assert.Equal(t, 4.5, *got[0].Rating)
			assert.Nil(t, got[1].Rating)
			assert.Nil(t, got[1].ReviewCount)
			assert.Nil(t, got[1].IsClosed)
		})
	}
}

func TestReadPage(t *testing.T) {
	s := newStore(t)

	_, ok, err := s.ReadPage(0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WritePage(0, []byte(`{"businesses":[{"id":"a"}],"total":1}`)))
	page, ok, err := s.ReadPage(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, page.Total)
}

func TestDetails(t *testing.T) {
	s := newStore(t)

	_, err := s.Details()
	assert.ErrorIs(t, err, ErrNoRawDocuments)

	require.NoError(t, s.WriteDetail("z", []byte(`{"id":"z","hours":[]}`)))
	require.NoError(t, s.WriteDetail("a", []byte(`{"id":"a","hours":[{"open":[{"day":0,"start":"1100","end":"2200"}]}]}`)))
	assert.True(t, s.HasDetail("a"))
	assert.False(t, s.HasDetail("missing"))

	got, err := s.Details()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "z", got[1].ID)
	require.Len(t, got[0].Hours, 1)
	assert.Len(t, got[0].Hours[0].Open, 1)

	d, err := s.ReadDetail("z")
	require.NoError(t, err)
	assert.Equal(t, "z", d.ID)
}

func TestDetails_IgnoresNonJSON(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.WriteDetail("a", []byte(`{"id":"a"}`)))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(s.PagePath(0)), "details", "notes.txt"), []byte("x"), 0o644))

	got, err := s.Details()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
