package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStore(t *testing.T) {
	store := NewDocumentStore()

	doc := store.Open("file:///work/build.xml", "<project/>", 1)
	require.NotNil(t, doc)
	assert.Equal(t, "work/build.xml", doc.Path)
	assert.Equal(t, []string{"file:///work/build.xml"}, store.List())

	updated := store.Update("file:///work/build.xml", "<project>\n</project>", 2)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, []int{0, 10}, updated.Lines)

	stale := store.Update("file:///work/build.xml", "<old/>", 1)
	assert.Equal(t, "<project>\n</project>", stale.Content, "stale version must not overwrite")

	assert.Nil(t, store.Update("file:///work/other.xml", "x", 1))

	store.Close("file:///work/build.xml")
	assert.Nil(t, store.Get("file:///work/build.xml"))
	assert.Empty(t, store.List())
}

func TestComputeLineOffsets(t *testing.T) {
	tests := []struct {
		content  string
		expected []int
	}{
		{"", []int{0}},
		{"hello", []int{0}},
		{"hello\n", []int{0, 6}},
		{"<project>\n  <target/>\n</project>", []int{0, 10, 22}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, computeLineOffsets(tt.content), "content %q", tt.content)
	}
}

func TestDocument_PositionToOffset(t *testing.T) {
	content := "line0\nline1\nline2"
	doc := &Document{Content: content, Lines: computeLineOffsets(content)}

	tests := []struct {
		pos      Position
		expected int
	}{
		{Position{Line: 0, Character: 0}, 0},
		{Position{Line: 0, Character: 3}, 3},
		{Position{Line: 1, Character: 0}, 6},
		{Position{Line: 1, Character: 4}, 10},
		{Position{Line: 2, Character: 5}, 17},
		{Position{Line: 100, Character: 0}, len(content)},
		{Position{Line: 0, Character: 100}, len(content)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, doc.PositionToOffset(tt.pos), "position %v", tt.pos)
	}
}

func TestDocument_OffsetToPosition(t *testing.T) {
	content := "line0\nline1\nline2"
	doc := &Document{Content: content, Lines: computeLineOffsets(content)}

	tests := []struct {
		offset   int
		expected Position
	}{
		{0, Position{Line: 0, Character: 0}},
		{5, Position{Line: 0, Character: 5}},
		{6, Position{Line: 1, Character: 0}},
		{12, Position{Line: 2, Character: 0}},
		{-1, Position{Line: 0, Character: 0}},
		{100, Position{Line: 2, Character: 5}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, doc.OffsetToPosition(tt.offset), "offset %d", tt.offset)
	}
}

func TestURIToPath(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"file:///Users/test/build.xml", "/Users/test/build.xml"},
		{"file:///home/my%20project/build.xml", "/home/my project/build.xml"},
		{"/already/a/path.xml", "/already/a/path.xml"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, URIToPath(tt.uri))
	}
}

func TestPathToURI(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/Users/test/build.xml", "file:///Users/test/build.xml"},
		{"/home/my project/build.xml", "file:///home/my%20project/build.xml"},
		{"file:///already/uri.xml", "file:///already/uri.xml"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, PathToURI(tt.path))
	}
}
