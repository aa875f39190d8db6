// Package mcpserver registers MCP tools that expose the blog engine.
// It adapts the blog package to the MCP SDK's tool handler interface.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/syrthax/blogsync/internal/blog"
)

// RegisterTools adds all blog tools to the given MCP server.
func RegisterTools(server *mcp.Server, store *blog.Store) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "blog_list",
		Description: "List all blog posts with metadata (filename, slug, title, date), newest first. No post bodies. Use this as the first call to see what exists.",
	}, listHandler(store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blog_get",
		Description: "Fetch one post by filename, including its body and current version token. Required before updating or deleting a post.",
	}, getHandler(store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blog_save",
		Description: "Create a new post (omit filename) or update an existing one (pass its filename). New posts get a filename derived from title and date. The listing index is updated best-effort.",
	}, saveHandler(store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "blog_delete",
		Description: "Delete a post by filename and remove it from the listing index.",
	}, deleteHandler(store))
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// ListInput has no parameters.
type ListInput struct{}

// GetInput holds parameters for blog_get.
type GetInput struct {
	Filename string `json:"filename" jsonschema:"required,post filename, e.g. 2024-03-10-hello-world.md"`
}

// SaveInput holds parameters for blog_save.
type SaveInput struct {
	Title    string `json:"title" jsonschema:"required,post title"`
	Date     string `json:"date" jsonschema:"required,publication date in YYYY-MM-DD form"`
	Content  string `json:"content" jsonschema:"required,markdown body without the frontmatter header"`
	Filename string `json:"filename,omitempty" jsonschema:"existing post to update; omit to create a new post"`
}

// DeleteInput holds parameters for blog_delete.
type DeleteInput struct {
	Filename string `json:"filename" jsonschema:"required,post filename to delete"`
}

// --- Output types ---

// PostSummary is one listing entry.
type PostSummary struct {
	Filename string `json:"filename"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Date     string `json:"date"`
}

// ListResult is the output of blog_list.
type ListResult struct {
	Posts []PostSummary `json:"posts"`
}

// GetResult is the output of blog_get.
type GetResult struct {
	Filename string `json:"filename"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Body     string `json:"body"`
}

// SaveOutput is the output of blog_save.
type SaveOutput struct {
	Filename    string `json:"filename"`
	Slug        string `json:"slug"`
	Created     bool   `json:"created"`
	IndexSynced bool   `json:"index_synced"`
}

// DeleteOutput is the output of blog_delete.
type DeleteOutput struct {
	Filename string `json:"filename"`
	Deleted  bool   `json:"deleted"`
}

// --- Handlers ---

func listHandler(store *blog.Store) mcp.ToolHandlerFor[ListInput, *ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, *ListResult, error) {
		posts, err := store.LoadAll(ctx)
		if err != nil {
			return nil, nil, err
		}

		result := &ListResult{Posts: make([]PostSummary, 0, len(posts))}
		for _, p := range posts {
			result.Posts = append(result.Posts, PostSummary{
				Filename: p.Filename,
				Slug:     blog.Slug(p.Filename),
				Title:    p.Title,
				Date:     p.Date,
			})
		}

		return textResult(result), result, nil
	}
}

func getHandler(store *blog.Store) mcp.ToolHandlerFor[GetInput, *GetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetInput) (*mcp.CallToolResult, *GetResult, error) {
		post, err := store.Fetch(ctx, input.Filename)
		if err != nil {
			return nil, nil, err
		}

		result := &GetResult{
			Filename: post.Filename,
			Slug:     blog.Slug(post.Filename),
			Title:    post.Title,
			Date:     post.Date,
			Body:     post.Body,
		}

		return textResult(result), result, nil
	}
}

func saveHandler(store *blog.Store) mcp.ToolHandlerFor[SaveInput, *SaveOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SaveInput) (*mcp.CallToolResult, *SaveOutput, error) {
		var existing *blog.Post

		if input.Filename != "" {
			post, err := store.Fetch(ctx, input.Filename)
			if err != nil {
				return nil, nil, fmt.Errorf("loading post to update: %w", err)
			}
			existing = post
		}

		saved, err := store.Save(ctx, blog.Draft{
			Title: input.Title,
			Date:  input.Date,
			Body:  input.Content,
		}, existing)
		if err != nil {
			return nil, nil, err
		}

		result := &SaveOutput{
			Filename:    saved.Post.Filename,
			Slug:        blog.Slug(saved.Post.Filename),
			Created:     saved.Created,
			IndexSynced: saved.IndexSynced,
		}

		return textResult(result), result, nil
	}
}

func deleteHandler(store *blog.Store) mcp.ToolHandlerFor[DeleteInput, *DeleteOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, *DeleteOutput, error) {
		post, err := store.Fetch(ctx, input.Filename)
		if err != nil {
			return nil, nil, fmt.Errorf("loading post to delete: %w", err)
		}

		if err := store.Delete(ctx, post); err != nil {
			return nil, nil, err
		}

		result := &DeleteOutput{Filename: input.Filename, Deleted: true}

		return textResult(result), result, nil
	}
}

// textResult builds a CallToolResult with JSON text content from any value.
// This provides the unstructured content alongside the structured output
// that the SDK populates automatically.
func textResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
