package profile

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParagraphs(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Paragraphs
	}{
		{"json array", `["First.","Second."]`, Paragraphs{"First.", "Second."}},
		{"json string", `"First.\n\nSecond."`, Paragraphs{"First.", "Second."}},
		{"double encoded", `"[\"First.\",\"Second.\"]"`, Paragraphs{"First.", "Second."}},
		{"plain text", "First.\r\n\r\nSecond.", Paragraphs{"First.", "Second."}},
		{"blank", "   ", Paragraphs{}},
		{"blank entries", `["", "Only."]`, Paragraphs{"Only."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ParseParagraphs(tc.raw)); diff != "" {
				t.Fatalf("ParseParagraphs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParagraphsValueScan(t *testing.T) {
	v, err := Paragraphs{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	var p Paragraphs
	require.NoError(t, p.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, Paragraphs{"a", "b"}, p)

	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p)

	assert.Error(t, p.Scan(42))
}

func TestGroupSkills(t *testing.T) {
	groups := GroupSkills([]Skill{
		{Name: "Go", Category: "Backend"},
		{Name: "React", Category: "Frontend"},
		{Name: "Postgres", Category: "Backend"},
		{Name: "Juggling"},
	})
	want := []SkillGroup{
		{Category: "Backend", Skills: []string{"Go", "Postgres"}},
		{Category: "Frontend", Skills: []string{"React"}},
		{Category: OtherCategory, Skills: []string{"Juggling"}},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Fatalf("GroupSkills mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPageWithoutProfile(t *testing.T) {
	data, err := json.Marshal(NewPage(Data{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hero":{"name":"","title":""},"about":{"bio":[]},"experience":[],"education":[],"skills":[]}`, string(data))
}

func TestNewPage(t *testing.T) {
	page := NewPage(Data{
		Profile: &Profile{Name: "Dana", Title: "Engineer", Bio: Paragraphs{"Hi."}},
		Skills:  []Skill{{Name: "Go", Category: "Backend"}},
	})
	assert.Equal(t, "Dana", page.Hero.Name)
	assert.Equal(t, Paragraphs{"Hi."}, page.About.Bio)
	assert.Len(t, page.Skills, 1)
}
