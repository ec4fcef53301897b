package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/smartbill/smartbill/internal/ai"
	"github.com/smartbill/smartbill/internal/auth"
	"github.com/smartbill/smartbill/internal/config"
	"github.com/smartbill/smartbill/internal/mail"
	"github.com/smartbill/smartbill/internal/middleware"
	"github.com/smartbill/smartbill/internal/service"
	"github.com/smartbill/smartbill/internal/storage/sqlite"
	"github.com/smartbill/smartbill/pkg/logging"
)

func main() {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "smartbill",
		Short: "Receipt splitting and bill reconciliation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (optional)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		slog.Warn("No SMTP host configured, bills will be logged instead of emailed")
	}

	var receipts service.ReceiptParser
	var transcripts service.TranscriptParser
	if cfg.OpenAIKey != "" {
		client := ai.New(cfg.OpenAIKey, cfg.OpenAIModel)
		receipts = client
		transcripts = client
	} else {
		slog.Warn("No OpenAI key configured, receipt OCR and transcript parsing are disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	common := connect.WithInterceptors(metrics.Interceptor(), middleware.LoggingInterceptor())
	authed := connect.WithInterceptors(
		metrics.Interceptor(),
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux,
		service.Services{
			Auth:     service.NewAuthService(authenticator, jwtManager, cfg.TokenTTL),
			Expenses: service.NewExpenseService(store, receipts, transcripts),
			Contacts: service.NewContactService(store),
			Splits:   service.NewSplitService(store, mailer),
		},
		[]connect.HandlerOption{common},
		[]connect.HandlerOption{authed},
	)

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(corsMiddleware(mux), &http2.Server{})

	slog.Info("Server starting", "address", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
