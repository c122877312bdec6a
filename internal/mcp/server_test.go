package mcp

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/Vsjangal/httpsched/internal/clock"
	"github.com/Vsjangal/httpsched/internal/core"
	"github.com/Vsjangal/httpsched/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRegisterToolsDoesNotPanic(t *testing.T) {
	db, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.DB.Close()

	control := core.NewControlSurface(db, clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	s := NewMCPServer(db, control, testLogger())

	mcpServer := server.NewMCPServer("httpsched-test", "0.0.0", server.WithToolCapabilities(true))
	s.registerTools(mcpServer)
}
