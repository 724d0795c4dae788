/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/support-assistant/service"
	"github.com/tieubaoca/support-assistant/types"
	"github.com/tieubaoca/support-assistant/utils"
)

const (
	renderWidth = 100
	renderPad   = 2
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the support assistant in the terminal",
	Long: `Starts an interactive terminal conversation.

Commands:
  /new              start a new conversation
  /export [path]    save the conversation as markdown (or .pdf)
  exit              quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApplication(ctx, cfg, zlog)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.ensureIngested(ctx, cfg, zlog); err != nil {
			return err
		}

		repl := &chatREPL{
			app:     app,
			session: app.sessions.Create(cfg.Agent.UserID),
			out:     cmd.OutOrStdout(),
		}
		return repl.run(cmd, os.Stdin)
	},
}

type chatREPL struct {
	app     *application
	session *service.Session
	out     io.Writer
}

func (r *chatREPL) run(cmd *cobra.Command, in io.Reader) error {
	fmt.Fprintf(r.out, "%s\nType 'exit' to quit, '/new' for a new chat, '/export [path]' to save it.\n\n", cfg.AssistantName)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit"):
			return nil
		case line == "/new":
			r.session.Reset()
			fmt.Fprintln(r.out, "Started a new conversation.")
			continue
		case line == "/export" || strings.HasPrefix(line, "/export "):
			r.export(strings.TrimSpace(strings.TrimPrefix(line, "/export")))
			continue
		}
		r.turn(cmd, line)
	}
}

// turn streams the answer as plain text. With markdown output enabled the
// answer is rendered once, when the turn completes.
func (r *chatREPL) turn(cmd *cobra.Command, prompt string) {
	fmt.Fprintf(r.out, "\n%s:\n", cfg.AssistantName)

	stream := !cfg.Agent.Markdown
	var streamed strings.Builder
	reply := r.app.chat.HandleTurn(cmd.Context(), r.session, prompt, func(event types.RunEvent) error {
		switch event.Type {
		case types.RunEventContent:
			streamed.WriteString(event.Content)
			if stream {
				fmt.Fprint(r.out, event.Content)
			}
		case types.RunEventToolCall:
			if cfg.Agent.ShowToolCalls && event.ToolCall != nil {
				fmt.Fprintf(r.out, "  [tool] %s(%s)\n", event.ToolCall.Name, event.ToolCall.Input)
			}
		}
		return nil
	})

	if !stream {
		fmt.Fprintf(r.out, "%s\n", markdown.Render(reply.Content, renderWidth, renderPad))
		return
	}
	// A failed turn replaces whatever was streamed with the error message.
	if reply.Content != streamed.String() {
		if streamed.Len() > 0 {
			fmt.Fprintln(r.out)
		}
		fmt.Fprint(r.out, reply.Content)
	}
	fmt.Fprint(r.out, "\n\n")
}

func (r *chatREPL) export(target string) {
	format := service.FormatMarkdown
	if strings.EqualFold(filepath.Ext(target), ".pdf") {
		format = service.FormatPDF
	}
	data, f, err := r.app.export.ExportHistory(r.session, format)
	if err != nil {
		fmt.Fprintf(r.out, "Export failed: %v\n", err)
		return
	}
	path, err := utils.WriteFileWithTimestamp(target, service.ExportBaseName+f.FileExtension(), data)
	if err != nil {
		fmt.Fprintf(r.out, "Export failed: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "Conversation saved to %s\n", path)
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
