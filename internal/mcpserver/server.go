// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes SiteDog Preview commands for agent-driven editors via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sitedog/preview/internal/editor"
	"github.com/sitedog/preview/internal/session"
)

// StateURI is the resource describing the preview panel.
const StateURI = "sitedog://preview/state"

// FileFinder lists workspace files with a given base name.
type FileFinder interface {
	Find(name string) ([]string, error)
}

// Server wraps the MCP server with SiteDog Preview tools.
type Server struct {
	mcp   *server.MCPServer
	sess  *session.Session
	files FileFinder
}

// New creates a new MCP server with all tools registered.
func New(sess *session.Session, files FileFinder, version string) *Server {
	s := &Server{sess: sess, files: files}

	s.mcp = server.NewMCPServer(
		"SiteDog Preview",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open a workspace file and make it the active document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path (e.g. app/sitedog.yml)")),
	), s.openDocument)

	s.mcp.AddTool(mcp.NewTool("edit_document",
		mcp.WithDescription("Replace the unsaved text of a document. "+
			"An open preview of a sitedog.yml file updates immediately."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Complete new document text")),
	), s.editDocument)

	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Write the text of an open document to disk."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path")),
	), s.saveDocument)

	s.mcp.AddTool(mcp.NewTool("show_preview",
		mcp.WithDescription("Show the cards preview of a sitedog.yml file, creating the panel or revealing the open one."),
		mcp.WithString("path", mcp.Description("Workspace-relative path; defaults to the active document")),
	), s.showPreview)

	s.mcp.AddTool(mcp.NewTool("refresh_preview",
		mcp.WithDescription("Reload the open preview from the active document on disk."),
	), s.refreshPreview)

	s.mcp.AddTool(mcp.NewTool("close_preview",
		mcp.WithDescription("Close the preview panel."),
	), s.closePreview)

	s.mcp.AddTool(mcp.NewTool("convert_relative_dates",
		mcp.WithDescription("Add an absolute expires_date line after every 'expires in: N days/weeks/months/years' entry. "+
			"Call with confirm=false first to see what would change, then confirm=true to apply."),
		mcp.WithString("path", mcp.Description("Workspace-relative path; defaults to the active document")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Apply the conversion")),
		mcp.WithBoolean("save", mcp.Description("Write the converted document to disk")),
	), s.convertRelativeDates)

	s.mcp.AddTool(mcp.NewTool("list_config_files",
		mcp.WithDescription("List every sitedog.yml file in the workspace."),
	), s.listConfigFiles)

	s.mcp.AddResource(
		mcp.NewResource(StateURI, "Preview State",
			mcp.WithResourceDescription("Whether the preview panel is open, which file it mirrors and how it rendered."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStateResource,
	)

	return s
}

// Listen serves MCP over in and out until ctx is cancelled or in is
// exhausted. Transport errors are written to errLog.
func (s *Server) Listen(ctx context.Context, in io.Reader, out, errLog io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(errLog, "mcp: ", log.LstdFlags))
	return stdio.Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) toolError(err error) *mcp.CallToolResult {
	if msg := s.sess.UserMessage(err); msg != "" {
		return mcp.NewToolResultError(msg)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) openDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.sess.OpenDocument(ctx, path)
	if err != nil {
		return s.toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened: %s (version %d)", doc.Path, doc.Version)), nil
}

func (s *Server) editDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.sess.EditDocument(ctx, path, text)
	if err != nil {
		return s.toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("edited: %s (version %d, unsaved)", doc.Path, doc.Version)), nil
}

func (s *Server) saveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.sess.SaveDocument(ctx, path)
	if err != nil {
		return s.toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", doc.Path)), nil
}

func (s *Server) showPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.sess.ShowPreview(ctx, req.GetString("path", ""))
	if err != nil {
		return s.toolError(err), nil
	}
	return jsonResult(st), nil
}

func (s *Server) refreshPreview(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.sess.RefreshPreview(ctx)
	if err != nil {
		return s.toolError(err), nil
	}
	if !st.Open {
		return mcp.NewToolResultText("no preview is open"), nil
	}
	return jsonResult(st), nil
}

func (s *Server) closePreview(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	closed, err := s.sess.ClosePanel(ctx)
	if err != nil {
		return s.toolError(err), nil
	}
	if !closed {
		return mcp.NewToolResultText("no preview is open"), nil
	}
	return mcp.NewToolResultText("preview closed"), nil
}

func (s *Server) convertRelativeDates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, err := req.RequireBool("confirm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.sess.ConvertRelativeDates(ctx, req.GetString("path", ""), editor.Answer(confirm), req.GetBool("save", false))
	if err != nil {
		return s.toolError(err), nil
	}
	return mcp.NewToolResultText(convertSummary(res)), nil
}

func convertSummary(res session.ConvertResult) string {
	var b strings.Builder
	switch {
	case res.Found == 0:
		b.WriteString("No relative dates found in the current document.")
	case res.Converted == 0:
		fmt.Fprintf(&b, "Found %d relative date(s) in %s. Call again with confirm=true to convert.", res.Found, res.Path)
	default:
		fmt.Fprintf(&b, "Converted %d relative date(s) to absolute dates in %s.", res.Converted, res.Path)
		if res.Saved {
			b.WriteString(" Saved.")
		}
	}
	for _, d := range res.Dates {
		fmt.Fprintf(&b, "\nline %d: %s -> %s", d.Line, d.Relative, d.Date)
	}
	return b.String()
}

func (s *Server) listConfigFiles(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.files.Find(s.sess.FileName())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(files) == 0 {
		return mcp.NewToolResultText("no " + s.sess.FileName() + " files found"), nil
	}
	return mcp.NewToolResultText(strings.Join(files, "\n")), nil
}

func (s *Server) readStateResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := s.sess.PanelState(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StateURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
