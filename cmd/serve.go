package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAssistant(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		s := &server{cfg: cfg, env: env}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// routes builds the API router with CORS and per-route rate limits.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(analyzeRatePerMinute))
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/analyze-stream", s.handleAnalyzeStream)
			r.Post("/analyze-image", s.handleAnalyzeImage)
			r.Post("/optimize", s.handleOptimize)
			r.Post("/explain-code", s.handleExplainCode)
			r.Post("/explain-simple", s.handleExplainSimple)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(ocrRatePerMinute))
			r.Post("/ocr", s.handleOCR)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(executeRatePerMinute))
			r.Post("/execute", s.handleExecute)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(s.cfg.Server.RatePerMinute))
			r.Get("/history", s.handleHistory)
			r.Get("/stats", s.handleStats)
		})
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
