package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/skout-mcp/internal/app"
	"github.com/dshills/skout-mcp/internal/capabilities"
	"github.com/dshills/skout-mcp/internal/clips"
)

const (
	// ServerName is the MCP server name
	ServerName = "skout-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	app    *app.App
	prober capabilities.Prober // nil without a credential
	slicer clips.Slicer

	// Single writer: one sync at a time per process
	syncSem *semaphore.Weighted
}

// NewServer creates a new MCP server over the components in a. The server
// does not own a; the caller closes it after Serve returns.
func NewServer(a *app.App) (*Server, error) {
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
		),
		app:     a,
		syncSem: semaphore.NewWeighted(1),
	}
	if a.Client != nil {
		s.prober = a.Client
	}

	slicer, err := a.Slicer()
	if err != nil {
		return nil, err
	}
	s.slicer = slicer

	s.registerTools()
	return s, nil
}

// WithSlicer replaces the clip slicer.
func (s *Server) WithSlicer(slicer clips.Slicer) *Server {
	s.slicer = slicer
	return s
}

// WithProber replaces the discovery prober.
func (s *Server) WithProber(p capabilities.Prober) *Server {
	s.prober = p
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(discoverCapabilitiesTool(), s.handleDiscoverCapabilities)
	s.mcp.AddTool(syncSeasonTool(), s.handleSyncSeason)
	s.mcp.AddTool(searchPlaysTool(), s.handleSearchPlays)
	s.mcp.AddTool(listTagsTool(), s.handleListTags)
	s.mcp.AddTool(linkVideoTool(), s.handleLinkVideo)
	s.mcp.AddTool(fetchPlayVideosTool(), s.handleFetchPlayVideos)
	s.mcp.AddTool(sliceClipTool(), s.handleSliceClip)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
