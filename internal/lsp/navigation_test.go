package lsp

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/antscope/internal/buildfile"
)

func TestListItem(t *testing.T) {
	tests := []struct {
		list       string
		pos        int
		item       string
		start, end int
	}{
		{"init,compile", 0, "init", 0, 4},
		{"init,compile", 4, "init", 0, 4},
		{"init,compile", 6, "compile", 5, 12},
		{"init, compile ", 8, "compile", 6, 13},
		{"", 0, "", 0, 0},
	}

	for _, tt := range tests {
		item, start, end := listItem(tt.list, tt.pos)
		assert.Equal(t, tt.item, item, "%q at %d", tt.list, tt.pos)
		assert.Equal(t, tt.start, start)
		assert.Equal(t, tt.end, end)
	}
}

func TestPropertyAt(t *testing.T) {
	content := `<echo message="${a} and ${b.c}"/> ${}`

	ref, ok := propertyAt(content, 17)
	require.True(t, ok)
	assert.Equal(t, "a", ref.name)
	assert.Equal(t, 17, ref.start)
	assert.Equal(t, 18, ref.end)

	ref, ok = propertyAt(content, 24)
	require.True(t, ok, "cursor on the dollar sign")
	assert.Equal(t, "b.c", ref.name)

	_, ok = propertyAt(content, 20)
	assert.False(t, ok, "between references")

	_, ok = propertyAt(content, 35)
	assert.False(t, ok, "empty reference")
}

func TestFindReference(t *testing.T) {
	content := `<project name="p" default="b">
  <target name="a"/>
  <target name="b" depends="a" description="${x}">
    <antcall target="a"/>
    <greet/>
  </target>
</project>
`
	root, err := buildfile.Parse("build.xml", []byte(content))
	require.NoError(t, err)
	proj, err := buildfile.NewProject("build.xml", root, buildfile.Env(fstest.MapFS{}))
	require.NoError(t, err)
	doc := NewDocumentStore().Open("file:///build.xml", content, 1)

	tests := []struct {
		name string
		pos  Position
		kind refKind
		ref  string
		tag  string
	}{
		{"default attribute", Position{Line: 0, Character: 27}, refTarget, "b", "project"},
		{"depends", Position{Line: 2, Character: 29}, refTarget, "a", "target"},
		{"antcall", Position{Line: 3, Character: 22}, refTarget, "a", "antcall"},
		{"property in attribute", Position{Line: 2, Character: 47}, refProperty, "x", "target"},
		{"element name", Position{Line: 4, Character: 6}, refElement, "greet", "greet"},
		{"target name is not a reference", Position{Line: 1, Character: 17}, 0, "", ""},
		{"whitespace", Position{Line: 5, Character: 0}, 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := findReference(doc, proj, doc.PositionToOffset(tt.pos))
			if tt.kind == 0 {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.kind, ref.kind)
			assert.Equal(t, tt.ref, ref.name)
			assert.Equal(t, tt.tag, ref.at.Tag)
		})
	}
}

func TestOverlay(t *testing.T) {
	o := NewOverlay(fstest.MapFS{"work/build.xml": {Data: []byte("disk")}})

	data, err := fs.ReadFile(o, "work/build.xml")
	require.NoError(t, err)
	assert.Equal(t, "disk", string(data))

	o.Set("work/build.xml", []byte("buffer"))
	data, err = fs.ReadFile(o, "work/build.xml")
	require.NoError(t, err)
	assert.Equal(t, "buffer", string(data))

	info, err := fs.Stat(o, "work/build.xml")
	require.NoError(t, err)
	assert.Equal(t, "build.xml", info.Name())
	assert.Equal(t, int64(6), info.Size())

	o.Set("work/new.xml", []byte("<project/>"))
	_, err = o.Open("work/new.xml")
	assert.NoError(t, err, "buffers need no file on disk")

	o.Delete("work/build.xml")
	data, err = fs.ReadFile(o, "work/build.xml")
	require.NoError(t, err)
	assert.Equal(t, "disk", string(data))
}
