// Package mcpserver exposes the Search Engine and Collection Discovery over
// the Model Context Protocol (spec C9): a fixed two-tool registry served
// transport-agnostically over stdio or HTTP+SSE, with tool descriptions
// that instruct the calling agent to cite noteTitle and to back off
// max_results on a token-limit error (spec §4.9).
package mcpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/michele-orsini-71/minerva/internal/discovery"
	"github.com/michele-orsini-71/minerva/internal/search"
	"github.com/michele-orsini-71/minerva/pkg/version"
)

// Server wraps the go-sdk MCP server with Minerva's tool registry.
type Server struct {
	mcp               *mcp.Server
	engine            *search.Engine
	registry          *discovery.Registry
	defaultMaxResults int
}

// New builds a Server over engine/registry and registers the spec §4.9 tool
// surface. defaultMaxResults backs search_knowledge_base's implicit default
// (the server config's default_max_results).
func New(engine *search.Engine, registry *discovery.Registry, defaultMaxResults int) *Server {
	s := &Server{
		mcp:               mcp.NewServer(&mcp.Implementation{Name: "minerva", Version: version.Short()}, nil),
		engine:            engine,
		registry:          registry,
		defaultMaxResults: defaultMaxResults,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "list_knowledge_bases",
		Description: "List every available knowledge base (note collection) this server can search, along with its description, note count, and embedding model. Call this first if you don't already know which collection_name to pass to search_knowledge_base.",
	}, s.handleListKnowledgeBases)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "search_knowledge_base",
		Description: "Semantically search one knowledge base and return the most relevant note excerpts. Always cite each result's noteTitle when you use its content in an answer. If the client reports the response exceeded its token limit, call again with a smaller max_results.",
	}, s.handleSearchKnowledgeBase)
}

// Serve runs the registered tool surface over transport ("stdio" or
// "http"), blocking until ctx is canceled or the transport fails. addr is
// only consulted for the "http" transport (spec §4.9's transport-agnostic
// launcher).
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	switch transport {
	case "stdio":
		return s.mcp.Run(ctx, &mcp.StdioTransport{})
	case "http":
		return s.serveHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown MCP transport %q", transport)
	}
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr: addr,
		Handler: mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return s.mcp
		}, nil),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close releases the underlying discovery registry's provider resources.
func (s *Server) Close() error {
	return s.registry.Close()
}
