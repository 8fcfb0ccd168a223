package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tablesync/internal/config"
	"github.com/sells-group/tablesync/internal/model"
	"github.com/sells-group/tablesync/internal/platform"
	"github.com/sells-group/tablesync/internal/resilience"
	"github.com/sells-group/tablesync/internal/transfer"
)

const maxRequestBodySize = 1 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for export and update requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		svc, err := initService(cfg)
		if err != nil {
			return err
		}

		return startServer(ctx, buildRouter(svc, cfg.Store), cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// syncService is the part of transfer.Service the HTTP handlers call.
type syncService interface {
	Export(ctx context.Context, req transfer.ExportRequest) ([]model.DocumentRef, error)
	UpdateByID(ctx context.Context, docID string, req transfer.UpdateRequest) (*model.Document, error)
}

// storeRequest locates the table. Empty fields fall back to the store config.
type storeRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Database string `json:"database"`
	Table    string `json:"table"`
}

func (s storeRequest) flags() *tableFlags {
	return &tableFlags{host: s.Host, port: s.Port, user: s.User, database: s.Database, table: s.Table}
}

type exportBody struct {
	storeRequest
	Dataset string `json:"dataset"`
}

type updateBody struct {
	storeRequest
	Item string `json:"item"`
}

// buildRouter wires the HTTP routes.
func buildRouter(svc syncService, defaults config.StoreConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/export", handleExport(svc, defaults))
	r.Post("/update", handleUpdate(svc, defaults))

	return r
}

func handleExport(svc syncService, defaults config.StoreConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body exportBody
		if !decodeBody(w, r, &body) {
			return
		}
		if body.Dataset == "" {
			writeError(w, http.StatusBadRequest, "dataset is required")
			return
		}
		coords, table, err := body.flags().resolve(defaults)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		refs, err := svc.Export(r.Context(), transfer.ExportRequest{
			Coordinates:  coords,
			Table:        table,
			CollectionID: body.Dataset,
		})
		if err != nil {
			respondErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": refs})
	}
}

func handleUpdate(svc syncService, defaults config.StoreConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateBody
		if !decodeBody(w, r, &body) {
			return
		}
		if body.Item == "" {
			writeError(w, http.StatusBadRequest, "item is required")
			return
		}
		coords, table, err := body.flags().resolve(defaults)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		doc, err := svc.UpdateByID(r.Context(), body.Item, transfer.UpdateRequest{Coordinates: coords, Table: table})
		if err != nil {
			respondErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondErr maps service errors to status codes and logs the failure.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, platform.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, transfer.ErrNoBestResponse), errors.Is(err, transfer.ErrNoPrompts):
		status = http.StatusUnprocessableEntity
	case resilience.IsTransient(err):
		status = http.StatusServiceUnavailable
	}
	zap.L().Error("request failed",
		zap.String("request_id", w.Header().Get("X-Request-ID")),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestID tags each request with an X-Request-ID, reusing the caller's if set.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// startServer serves handler on port until ctx is cancelled.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}

	return nil
}
