/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/support-assistant/config"
	"github.com/tieubaoca/support-assistant/handler"
	"github.com/tieubaoca/support-assistant/service"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the web chat server",
	Long: `Populates the knowledge base if needed, then serves the web chat UI,
the REST API and the streaming websocket endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		if !cfg.Development {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := newApplication(ctx, cfg, zlog)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.ensureIngested(ctx, cfg, zlog); err != nil {
			return err
		}

		index, err := handler.NewIndexHandler(cfg.AssistantName, config.SampleQuestions)
		if err != nil {
			return err
		}
		router := handler.SetupRouter(handler.Handlers{
			Index:   index,
			Chat:    handler.NewChatHandler(app.chat, app.sessions, service.NewWebSocketService(app.chat, zlog)),
			Session: handler.NewSessionHandler(app.sessions, app.export),
			Search:  handler.NewSearchHandler(app.retriever),
			Cors:    handler.NewCorsHandler(""),
			Metrics: app.metrics,
		}, zlog)

		srv := &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		}
		errCh := make(chan error, 1)
		go func() {
			zlog.Info("Starting server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		zlog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
	startServerCmd.Flags().StringP("port", "p", "", "listen port (overrides config)")
}
