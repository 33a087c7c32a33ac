package mcp_test

import (
	"context"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/mcp"
)

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

func firstText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	toolsResult, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{mcp.ToolNameDiff, mcp.ToolNameMerge}, toolNames)
}

func TestMCPServer_CallDiff_Unified(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameDiff, map[string]any{
		"old":      "a\nb\nc\n",
		"new":      "a\nB\nc\n",
		"old_name": "old.txt",
		"new_name": "new.txt",
	})
	assert.False(t, result.IsError)

	text := firstText(t, result)
	assert.Contains(t, text, "--- old.txt")
	assert.Contains(t, text, "+++ new.txt")
	assert.Contains(t, text, "@@ -1,3 +1,3 @@")
	assert.Contains(t, text, "-b\n+B")
}

func TestMCPServer_CallDiff_JSON(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameDiff, map[string]any{
		"old":           "x\n",
		"new":           "y\n",
		"format":        "json",
		"context_lines": 0,
		"engine":        "libgit2",
	})
	assert.False(t, result.IsError)

	text := firstText(t, result)
	assert.Contains(t, text, `"engine": "libgit2"`)
	assert.Contains(t, text, `"additions": 1`)
}

func TestMCPServer_CallDiff_HugeContext(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	for _, engine := range []string{"native", "libgit2", "auto"} {
		result := callTool(t, session, mcp.ToolNameDiff, map[string]any{
			"old":           "a\nb\nc\n",
			"new":           "a\nX\nc\n",
			"context_lines": 1 << 62,
			"engine":        engine,
		})
		require.False(t, result.IsError, engine)

		text := firstText(t, result)
		assert.Contains(t, text, "@@ -1,3 +1,3 @@\n a\n-b\n+X\n c\n", engine)
	}
}

func TestMCPServer_CallDiff_Errors(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"bad format", map[string]any{"old": "a", "new": "b", "format": "html"}, "unknown format"},
		{"bad flag", map[string]any{"old": "a", "new": "b", "flags": []string{"sideways"}}, "unknown diff flag"},
		{"bad pattern", map[string]any{"old": "a", "new": "b", "ignore": []string{"("}}, "invalid pattern syntax"},
		{"negative context", map[string]any{"old": "a", "new": "b", "context_lines": -1}, "context_lines"},
		{"too large", map[string]any{"old": strings.Repeat("x", mcp.MaxInputBytes+1), "new": ""}, "maximum size"},
	}

	for _, tt := range tests {
		result := callTool(t, session, mcp.ToolNameDiff, tt.args)
		assert.True(t, result.IsError, tt.name)
		assert.Contains(t, firstText(t, result), tt.want, tt.name)
	}
}

func TestMCPServer_CallMerge(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	clean := callTool(t, session, mcp.ToolNameMerge, map[string]any{
		"base":   "a\nb\nc\nd\ne\n",
		"ours":   "A\nb\nc\nd\ne\n",
		"theirs": "a\nb\nc\nd\nE\n",
	})
	assert.False(t, clean.IsError)
	assert.Equal(t, "A\nb\nc\nd\nE\n", firstText(t, clean))

	conflict := callTool(t, session, mcp.ToolNameMerge, map[string]any{
		"base":         "a\n",
		"ours":         "b\n",
		"theirs":       "c\n",
		"style":        "diff3",
		"ours_label":   "ours",
		"theirs_label": "theirs",
		"base_label":   "base",
	})
	assert.False(t, conflict.IsError)

	text := firstText(t, conflict)
	assert.Contains(t, text, "<<<<<<< ours")
	assert.Contains(t, text, "||||||| base")
	assert.Contains(t, text, ">>>>>>> theirs")

	bad := callTool(t, session, mcp.ToolNameMerge, map[string]any{
		"base": "a", "ours": "b", "theirs": "c", "favor": "mine",
	})
	assert.True(t, bad.IsError)
}
