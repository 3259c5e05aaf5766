// Package mcp exposes the corpus to MCP clients: hybrid search, feature
// extraction, YARA generation and corpus statistics over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/vxlab/malsift/internal/analysis"
	"github.com/vxlab/malsift/internal/db"
	"github.com/vxlab/malsift/internal/retrieval"
	"github.com/vxlab/malsift/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Config carries the retrieval settings the tool handlers need.
type Config struct {
	CodeCollection string
	TextCollection string
	SearchTopK     int
}

// Server wraps an MCP server that exposes malware corpus tools.
type Server struct {
	cfg       Config
	searcher  *retrieval.Searcher
	extractor *analysis.Extractor
	router    *analysis.Router
	store     vectordb.Store
	ledger    *db.DB
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies. ledger
// may be nil; corpus_stats then reports collection counts only.
func NewServer(cfg Config, searcher *retrieval.Searcher, extractor *analysis.Extractor, router *analysis.Router, store vectordb.Store, ledger *db.DB) *Server {
	s := &Server{
		cfg:       cfg,
		searcher:  searcher,
		extractor: extractor,
		router:    router,
		store:     store,
		ledger:    ledger,
	}

	s.mcp = server.NewMCPServer(
		"malsift",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchCorpusTool, s.handleSearchCorpus)
	s.mcp.AddTool(extractFeaturesTool, s.handleExtractFeatures)
	s.mcp.AddTool(generateYaraTool, s.handleGenerateYara)
	s.mcp.AddTool(corpusStatsTool, s.handleCorpusStats)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
