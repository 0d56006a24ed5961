// Package mcp exposes conversations as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/internal/runtime"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/graph"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/session"
)

const graphURI = "callflow://graph"

// StartResult is returned by start_conversation.
type StartResult struct {
	SessionID   string              `json:"session_id" jsonschema_description:"Identifier to pass to every later call"`
	CurrentNode string              `json:"current_node"`
	Messages    []domain.Message    `json:"messages" jsonschema_description:"Role and task instructions for the first node"`
	Catalog     []domain.ActionSpec `json:"catalog" jsonschema_description:"Actions callable right now"`
}

// InvokeResult is returned by invoke_action.
type InvokeResult struct {
	Outcome     *ports.Outcome      `json:"outcome"`
	CurrentNode string              `json:"current_node"`
	Catalog     []domain.ActionSpec `json:"catalog"`
	Terminated  bool                `json:"terminated" jsonschema_description:"The conversation has ended; hang up"`
}

type invokeArgs struct {
	SessionID string         `json:"session_id"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

// Server wraps the session manager as an MCP server.
type Server struct {
	sessions  *session.Manager
	graph     func() *graph.Graph
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new MCP server over mgr. source supplies the definition exposed by get_graph.
func NewServer(mgr *session.Manager, source func() *graph.Graph, version string, opts ...Option) *Server {
	s := &Server{
		sessions:  mgr,
		graph:     source,
		mcpServer: server.NewMCPServer("callflow-mcp", version, server.WithToolCapabilities(false)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_conversation",
		mcp.WithDescription("Open a new conversation. Returns the instructions for the first step and the actions callable from it."),
		mcp.WithOutputSchema[StartResult](),
	), s.handleStart)

	s.mcpServer.AddTool(mcp.NewTool("invoke_action",
		mcp.WithDescription("Invoke one of the actions in the current catalog. Only actions from the latest catalog are accepted."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier from start_conversation")),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action name from the current catalog")),
		mcp.WithObject("params", mcp.Description("Arguments matching the action's parameter schema")),
		mcp.WithOutputSchema[InvokeResult](),
	), s.handleInvoke)

	s.mcpServer.AddTool(mcp.NewTool("get_catalog",
		mcp.WithDescription("List the actions callable from the conversation's current step."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
	), s.handleCatalog)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the full graph definition for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.graph().Definition())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode graph: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conv, msgs, err := s.sessions.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	res := StartResult{
		SessionID:   conv.ID,
		CurrentNode: conv.Dispatcher.CurrentNode(),
		Messages:    msgs,
		Catalog:     conv.Dispatcher.Catalog(),
	}
	return structured(res)
}

func (s *Server) handleInvoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args invokeArgs
	if err := request.BindArguments(&args); err != nil || args.SessionID == "" || args.Action == "" {
		return mcp.NewToolResultError("session_id and action are required"), nil
	}

	out, err := s.sessions.Invoke(ctx, args.SessionID, args.Action, args.Params)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSessionNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("unknown session %q; call start_conversation first", args.SessionID)), nil
	case runtime.IsProtocolError(err):
		s.logger.Debug("mcp: action rejected", "session_id", args.SessionID, "action", args.Action)
		return mcp.NewToolResultError(runtime.RejectionMessage(err)), nil
	default:
		return nil, err
	}

	conv, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return nil, err
	}
	return structured(InvokeResult{
		Outcome:     out,
		CurrentNode: conv.Dispatcher.CurrentNode(),
		Catalog:     conv.Dispatcher.Catalog(),
		Terminated:  out.Terminated,
	})
}

func (s *Server) handleCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := request.BindArguments(&args); err != nil || args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	conv, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown session %q", args.SessionID)), nil
	}
	return structured(conv.Dispatcher.Catalog())
}

func structured(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultStructured(v, string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Current Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.graph().Definition())
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
