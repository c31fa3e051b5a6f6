package session

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/morezero/capabilities-chat/pkg/bootstrap"
)

// stdioProviderEnv makes the test binary act as a stdio MCP provider.
const stdioProviderEnv = "CAPCHAT_SESSION_TEST_STDIO_PROVIDER"

func TestMain(m *testing.M) {
	if os.Getenv(stdioProviderEnv) == "1" {
		if err := server.ServeStdio(newNoisyServer()); err != nil {
			fmt.Fprintf(os.Stderr, "stdio provider: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// newNoisyServer answers every call after writing ~47KB to stderr, close to
// a full pipe buffer per call.
func newNoisyServer() *server.MCPServer {
	s := server.NewMCPServer("chatty", "1.0.0", server.WithToolCapabilities(false))
	line := strings.Repeat("x", 99) + "\n"
	s.AddTool(mcp.NewTool("noisy", mcp.WithDescription("Log heavily, then answer")),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			for i := 0; i < 470; i++ {
				_, _ = os.Stderr.WriteString(line)
			}
			return mcp.NewToolResultText("ok"), nil
		})
	return s
}

func TestConnect_StdioDrainsStderr(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := context.Background()

	s, err := Connect(ctx, bootstrap.Provider{
		Name: "chatty",
		ProviderEntry: bootstrap.ProviderEntry{
			Command: os.Args[0],
			Env:     map[string]string{stdioProviderEnv: "1"},
		},
	}, Options{Logger: zap.New(core), InitTimeout: 10 * time.Second})
	require.NoError(t, err)
	defer s.Close()

	for i := 1; i <= 4; i++ {
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		res, err := s.CallAction(callCtx, "noisy", map[string]any{})
		cancel()
		require.NoError(t, err, "session:stdio_test - call %d", i)
		assert.Equal(t, "ok", res.Text())
	}

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("provider stderr").FilterField(zap.String("provider", "chatty")).Len() > 0
	}, 5*time.Second, 20*time.Millisecond, "session:stdio_test - stderr lines should reach the logger")
}
