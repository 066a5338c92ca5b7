package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/antscope/internal/session"
)

const diskBuildFile = `<project name="app" default="dist">
  <include file="lib.xml" as="lib"/>
  <property name="version" value="2.0"/>
  <target name="init"/>
  <target name="dist" depends="init,lib.setup">
    <echo message="${version}"/>
  </target>
</project>
`

// editedBuildFile is the unsaved buffer: dist gains an unknown dependency.
const editedBuildFile = `<project name="app" default="dist">
  <include file="lib.xml" as="lib"/>
  <property name="version" value="2.0"/>
  <target name="init"/>
  <target name="dist" depends="init,lib.setup,missing">
    <echo message="${version}"/>
  </target>
</project>
`

const buildURI = "file:///work/build.xml"

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"work/build.xml": {Data: []byte(diskBuildFile)},
		"work/lib.xml":   {Data: []byte("<project name=\"lib\">\n  <target name=\"setup\"/>\n</project>\n")},
	}
}

// request frames a JSON-RPC message; id 0 makes a notification.
func request(id int, method string, params any) string {
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if id != 0 {
		msg["id"] = id
	}
	if params != nil {
		msg["params"] = params
	}
	body, _ := json.Marshal(msg)
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func posParams(uri string, line, char int) map[string]any {
	return map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": line, "character": char},
	}
}

// runSession feeds the messages to a server and returns everything it wrote.
func runSession(t *testing.T, messages ...string) []JSONRPCMessage {
	t.Helper()
	var out bytes.Buffer
	srv := NewServer(strings.NewReader(strings.Join(messages, "")), &out, Options{
		Session: session.Options{FS: testFS()},
		Logger:  slog.New(slog.DiscardHandler),
	})
	require.NoError(t, srv.Run())
	return readAll(t, &out)
}

func readAll(t *testing.T, r io.Reader) []JSONRPCMessage {
	t.Helper()
	br := bufio.NewReader(r)
	var msgs []JSONRPCMessage
	for {
		header, err := br.ReadString('\n')
		if err == io.EOF {
			return msgs
		}
		require.NoError(t, err)
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "Content-Length: ")))
		require.NoError(t, err)
		_, err = br.ReadString('\n')
		require.NoError(t, err)
		body := make([]byte, n)
		_, err = io.ReadFull(br, body)
		require.NoError(t, err)
		var msg JSONRPCMessage
		require.NoError(t, json.Unmarshal(body, &msg))
		msgs = append(msgs, msg)
	}
}

func response(t *testing.T, msgs []JSONRPCMessage, id int) JSONRPCMessage {
	t.Helper()
	for _, m := range msgs {
		if m.ID != nil && string(*m.ID) == strconv.Itoa(id) {
			return m
		}
	}
	require.FailNow(t, "no response", "id %d", id)
	return JSONRPCMessage{}
}

func diagnostics(t *testing.T, msgs []JSONRPCMessage) []PublishDiagnosticsParams {
	t.Helper()
	var out []PublishDiagnosticsParams
	for _, m := range msgs {
		if m.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var p PublishDiagnosticsParams
		require.NoError(t, json.Unmarshal(m.Params, &p))
		out = append(out, p)
	}
	return out
}

func openDoc(text string) string {
	return request(0, "textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": buildURI, "languageId": "xml", "version": 1, "text": text},
	})
}

func TestServerNavigation(t *testing.T) {
	msgs := runSession(t,
		request(1, "initialize", map[string]any{"processId": 1, "rootUri": "file:///work"}),
		request(0, "initialized", map[string]any{}),
		openDoc(editedBuildFile),
		request(2, "textDocument/hover", posParams(buildURI, 5, 23)),
		request(3, "textDocument/definition", posParams(buildURI, 4, 32)),
		request(4, "textDocument/definition", posParams(buildURI, 4, 40)),
		request(5, "textDocument/definition", posParams(buildURI, 0, 30)),
		request(6, "textDocument/hover", posParams(buildURI, 4, 48)),
		request(7, "textDocument/completion", posParams(buildURI, 0, 0)),
		request(8, "shutdown", nil),
		request(9, "textDocument/hover", posParams(buildURI, 5, 23)),
		request(0, "exit", nil),
	)

	t.Run("initialize", func(t *testing.T) {
		var result InitializeResult
		require.NoError(t, json.Unmarshal(response(t, msgs, 1).Result, &result))
		assert.True(t, result.Capabilities.HoverProvider)
		assert.True(t, result.Capabilities.DefinitionProvider)
		assert.Equal(t, TextDocumentSyncKindFull, result.Capabilities.TextDocumentSync.Change)
	})

	t.Run("diagnostics reflect the unsaved buffer", func(t *testing.T) {
		published := diagnostics(t, msgs)
		require.NotEmpty(t, published)
		last := published[len(published)-1]
		assert.Equal(t, buildURI, last.URI)
		require.Len(t, last.Diagnostics, 1)
		d := last.Diagnostics[0]
		assert.Equal(t, "missing-target", d.Code)
		assert.Equal(t, `target "dist" depends on unknown target "missing"`, d.Message)
		assert.Equal(t, Position{Line: 4, Character: 2}, d.Range.Start)
	})

	t.Run("property hover", func(t *testing.T) {
		var hover Hover
		require.NoError(t, json.Unmarshal(response(t, msgs, 2).Result, &hover))
		assert.Equal(t, MarkupKindMarkdown, hover.Contents.Kind)
		assert.Contains(t, hover.Contents.Value, "**property** `version` = `2.0`")
		assert.Contains(t, hover.Contents.Value, "/work/build.xml:3")
		require.NotNil(t, hover.Range)
		assert.Equal(t, Range{Start: Position{Line: 5, Character: 21}, End: Position{Line: 5, Character: 28}}, *hover.Range)
	})

	t.Run("depends entry", func(t *testing.T) {
		var locs []Location
		require.NoError(t, json.Unmarshal(response(t, msgs, 3).Result, &locs))
		require.Len(t, locs, 1)
		assert.Equal(t, buildURI, locs[0].URI)
		assert.Equal(t, Position{Line: 3, Character: 2}, locs[0].Range.Start)
	})

	t.Run("depends entry in included file", func(t *testing.T) {
		var locs []Location
		require.NoError(t, json.Unmarshal(response(t, msgs, 4).Result, &locs))
		require.Len(t, locs, 1)
		assert.Equal(t, "file:///work/lib.xml", locs[0].URI)
		assert.Equal(t, Position{Line: 1, Character: 2}, locs[0].Range.Start)
	})

	t.Run("default target", func(t *testing.T) {
		var locs []Location
		require.NoError(t, json.Unmarshal(response(t, msgs, 5).Result, &locs))
		require.Len(t, locs, 1)
		assert.Equal(t, Position{Line: 4, Character: 2}, locs[0].Range.Start)
	})

	t.Run("unknown target hover", func(t *testing.T) {
		var hover Hover
		require.NoError(t, json.Unmarshal(response(t, msgs, 6).Result, &hover))
		assert.Equal(t, "**target** `missing` is not defined", hover.Contents.Value)
	})

	t.Run("unsupported method", func(t *testing.T) {
		resp := response(t, msgs, 7)
		require.NotNil(t, resp.Error)
		assert.Equal(t, codeMethodNotFound, resp.Error.Code)
	})

	t.Run("requests after shutdown", func(t *testing.T) {
		assert.Nil(t, response(t, msgs, 8).Error)
		resp := response(t, msgs, 9)
		require.NotNil(t, resp.Error)
		assert.Equal(t, codeInvalidRequest, resp.Error.Code)
	})
}

func TestServerDocumentLifecycle(t *testing.T) {
	msgs := runSession(t,
		request(1, "initialize", map[string]any{"processId": 1, "rootUri": "file:///work"}),
		openDoc(diskBuildFile),
		request(0, "textDocument/didChange", map[string]any{
			"textDocument":   map[string]any{"uri": buildURI, "version": 2},
			"contentChanges": []map[string]any{{"text": "<project name=\"app\">\n  <target name=\"x\">\n"}},
		}),
		request(0, "textDocument/didClose", map[string]any{
			"textDocument": map[string]any{"uri": buildURI},
		}),
		request(0, "exit", nil),
	)

	published := diagnostics(t, msgs)
	require.Len(t, published, 3)

	assert.Empty(t, published[0].Diagnostics, "the file on disk is clean")

	require.Len(t, published[1].Diagnostics, 1)
	assert.Equal(t, "parse-error", published[1].Diagnostics[0].Code)
	assert.Equal(t, DiagnosticSeverityError, published[1].Diagnostics[0].Severity)

	assert.Equal(t, buildURI, published[2].URI)
	assert.Empty(t, published[2].Diagnostics, "closing clears diagnostics")
}

func TestServerEOF(t *testing.T) {
	msgs := runSession(t, request(1, "initialize", map[string]any{"processId": 1}))
	assert.Len(t, msgs, 1)
}
