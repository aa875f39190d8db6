package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"

	"github.com/syrthax/blogsync/github"
	"github.com/syrthax/blogsync/internal/blog"
	"github.com/syrthax/blogsync/internal/config"
	errs "github.com/syrthax/blogsync/internal/errors"
	"github.com/syrthax/blogsync/internal/logging"
	"github.com/syrthax/blogsync/internal/mcpserver"
	"github.com/syrthax/blogsync/internal/session"
	"github.com/syrthax/blogsync/internal/state"
)

var Version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "blogsync",
		Usage:   "Manage markdown blog posts stored in a GitHub repository",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "blogsync.yml",
				Sources: cli.EnvVars("BLOGSYNC_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "login",
				Usage:     "Verify an access token and cache it for later commands",
				ArgsUsage: "[token]",
				Action:    runLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the cached access token",
				Action: runLogout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the authenticated identity",
				Action: runWhoami,
			},
			{
				Name:   "list",
				Usage:  "List all posts, newest first",
				Action: runList,
			},
			{
				Name:      "show",
				Usage:     "Print one post",
				ArgsUsage: "<filename>",
				Action:    runShow,
			},
			{
				Name:  "save",
				Usage: "Create a new post, or update one with --filename",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Post title", Required: true},
					&cli.StringFlag{Name: "date", Usage: "Publication date (YYYY-MM-DD), defaults to today"},
					&cli.StringFlag{Name: "body-file", Usage: "File with the markdown body, or - for stdin", Value: "-"},
					&cli.StringFlag{Name: "filename", Usage: "Existing post to update; omit to create"},
				},
				Action: runSave,
			},
			{
				Name:      "delete",
				Usage:     "Delete a post",
				ArgsUsage: "<filename>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Skip the confirmation prompt"},
				},
				Action: runDelete,
			},
			{
				Name:      "preview",
				Usage:     "Render a post body to HTML on stdout",
				ArgsUsage: "<filename>",
				Action:    runPreview,
			},
			{
				Name:  "mcp",
				Usage: "Serve the blog as MCP tools (stdio by default)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "Serve streamable HTTP on this address instead of stdio"},
				},
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs after setup.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	state  *state.State
	client *github.Client
	sess   *session.Session
	store  *blog.Store
}

func (a *app) close() {
	if a.state != nil {
		a.state.Close()
	}
}

// setup loads config and state, resolves the access token, verifies the
// identity against the allow-listed editor, and wires the store.
func setup(ctx context.Context, cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logging.NewLogger(cfg.Environment),
	}

	a.state, err = state.Load()
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	token := cfg.Token
	fromCache := false

	if token == "" {
		token = a.state.Token()
		fromCache = true
	}

	if token == "" {
		a.close()
		return nil, fmt.Errorf("no access token: set BLOGSYNC_TOKEN or run `blogsync login`")
	}

	a.client = newClient(cfg, token)

	a.sess, err = session.Establish(ctx, a.client, cfg.AllowedUser)
	if err != nil {
		// A cached token that no longer verifies is dropped so the next
		// login starts clean.
		if fromCache && errors.Is(err, errs.ErrBadToken) {
			if clearErr := a.state.ClearToken(); clearErr != nil {
				a.logger.Warn("failed to clear cached token", slog.String("error", clearErr.Error()))
			}
		}

		a.close()

		return nil, err
	}

	a.store = blog.NewStore(a.client, a.sess, cfg.PostsDir, cfg.IndexPath, a.logger)

	return a, nil
}

func newClient(cfg *config.Config, token string) *github.Client {
	client := github.NewClient(nil, token, cfg.Owner, cfg.Repo)
	if cfg.APIBaseURL != "" {
		client.SetBaseURL(cfg.APIBaseURL)
	}

	return client
}

func runLogin(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token := cmd.Args().First()
	if token == "" {
		fmt.Fprint(os.Stderr, "Enter personal access token: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return fmt.Errorf("no input")
		}
		token = strings.TrimSpace(scanner.Text())
	}

	if token == "" {
		return fmt.Errorf("empty token")
	}

	sess, err := session.Establish(ctx, newClient(cfg, token), cfg.AllowedUser)
	if err != nil {
		return err
	}

	st, err := state.Load()
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer st.Close()

	if err := st.SetToken(token); err != nil {
		return fmt.Errorf("caching token: %w", err)
	}

	fmt.Printf("Logged in as %s (%s)\n", sess.CommitterName(), sess.User.Login)

	return nil
}

func runLogout(_ context.Context, _ *cli.Command) error {
	st, err := state.Load()
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer st.Close()

	if err := st.ClearToken(); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}

	fmt.Println("Logged out")

	return nil
}

func runWhoami(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("%s (%s) <%s>\n", a.sess.CommitterName(), a.sess.User.Login, a.sess.CommitterEmail())

	return nil
}

func runList(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	posts, err := a.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	if len(posts) == 0 {
		fmt.Println("No posts yet.")
		return nil
	}

	for _, p := range posts {
		fmt.Printf("%-12s %-40s %s\n", p.Date, p.Title, p.Filename)
	}

	return nil
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	filename := cmd.Args().First()
	if filename == "" {
		return fmt.Errorf("usage: blogsync show <filename>")
	}

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	post, err := a.store.Fetch(ctx, filename)
	if err != nil {
		return err
	}

	fmt.Printf("title: %s\ndate: %s\nslug: %s\n\n%s\n", post.Title, post.Date, blog.Slug(post.Filename), post.Body)

	return nil
}

func runSave(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	body, err := readBody(cmd.String("body-file"))
	if err != nil {
		return err
	}

	date := cmd.String("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	var existing *blog.Post

	if filename := cmd.String("filename"); filename != "" {
		existing, err = a.store.Fetch(ctx, filename)
		if err != nil {
			return fmt.Errorf("loading post to update: %w", err)
		}
	}

	result, err := a.store.Save(ctx, blog.Draft{
		Title: cmd.String("title"),
		Date:  date,
		Body:  strings.TrimSpace(body),
	}, existing)
	if err != nil {
		return err
	}

	verb := "Updated"
	if result.Created {
		verb = "Created"
	}
	fmt.Printf("%s %s\n", verb, result.Post.Filename)

	if !result.IndexSynced {
		fmt.Println("warning: listing index not updated; it will catch up on the next save")
	}

	return nil
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	filename := cmd.Args().First()
	if filename == "" {
		return fmt.Errorf("usage: blogsync delete <filename>")
	}

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	post, err := a.store.Fetch(ctx, filename)
	if err != nil {
		return fmt.Errorf("loading post to delete: %w", err)
	}

	if !cmd.Bool("yes") {
		fmt.Fprintf(os.Stderr, "Delete %q? [y/N] ", post.Title)
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := a.store.Delete(ctx, post); err != nil {
		return err
	}

	fmt.Printf("Deleted %s\n", filename)

	return nil
}

func runPreview(ctx context.Context, cmd *cli.Command) error {
	filename := cmd.Args().First()
	if filename == "" {
		return fmt.Errorf("usage: blogsync preview <filename>")
	}

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	post, err := a.store.Fetch(ctx, filename)
	if err != nil {
		return err
	}

	html, err := blog.RenderHTML(post.Body)
	if err != nil {
		return err
	}

	fmt.Print(html)

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	server := mcp.NewServer(
		&mcp.Implementation{Name: "blogsync-mcp", Version: Version},
		nil,
	)
	mcpserver.RegisterTools(server, a.store)

	addr := cmd.String("listen")
	if addr == "" {
		a.logger.Info("serving MCP over stdio")
		return server.Run(ctx, &mcp.StdioTransport{})
	}

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		a.logger.Info("shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	a.logger.Info("starting MCP server", slog.String("listen", addr))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

func readBody(source string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading body from stdin: %w", err)
		}

		return string(data), nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("reading body file: %w", err)
	}

	return string(data), nil
}
