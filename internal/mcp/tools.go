package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchCorpusTool defines the search_corpus MCP tool.
var searchCorpusTool = mcp.NewTool("search_corpus",
	mcp.WithDescription("Search the malware sample corpus. Combines vector similarity with indicator keyword matching and returns the best matching code chunks, binary triage points and documents."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Code fragment or natural language description of the behavior to find"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Number of candidates to retrieve before re-ranking (default 20; roughly half survive)"),
	),
	mcp.WithString("family",
		mcp.Description("Restrict results to one malware family; skips the keyword re-rank"),
	),
)

// extractFeaturesTool defines the extract_features MCP tool.
var extractFeaturesTool = mcp.NewTool("extract_features",
	mcp.WithDescription("Extract suspicious indicators from code: Windows API calls, network operations and cryptographic operations."),
	mcp.WithString("code",
		mcp.Required(),
		mcp.Description("Source code or disassembly to scan"),
	),
)

// generateYaraTool defines the generate_yara MCP tool.
var generateYaraTool = mcp.NewTool("generate_yara",
	mcp.WithDescription("Generate a YARA rule for a code sample from the indicators shared by its nearest corpus matches. Needs at least two similar samples in the corpus."),
	mcp.WithString("code",
		mcp.Required(),
		mcp.Description("Source code or disassembly to build a rule for"),
	),
)

// corpusStatsTool defines the corpus_stats MCP tool.
var corpusStatsTool = mcp.NewTool("corpus_stats",
	mcp.WithDescription("Get corpus statistics: point counts per collection, the last ingest run and recent analyses."),
)
