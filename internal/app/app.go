package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"coursepilot/backend/features/catalog"
	"coursepilot/backend/features/chat"
	"coursepilot/backend/features/stats"
	"coursepilot/backend/internal/agent"
	"coursepilot/backend/internal/config"
	"coursepilot/backend/internal/llm"
	"coursepilot/backend/internal/middleware"
	"coursepilot/backend/internal/retrieval"
	"coursepilot/backend/internal/worker"
)

// VectorStore is everything the app needs from the course vector store.
type VectorStore interface {
	Search(ctx context.Context, query string, vector []float32, limit int) ([]retrieval.Course, error)
	StoreCourse(ctx context.Context, course retrieval.Course, vector []float32) error
	DeleteByCode(ctx context.Context, code string) error
	Count(ctx context.Context) (int, error)
	EnsureSchema(ctx context.Context) error
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type App struct {
	Handler      http.Handler
	ChatService  *chat.Service
	ChatConsumer *worker.ChatConsumer

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	taskPub TaskPublisher,
	gen llm.Generator,
	embedder Embedder,
) (*App, error) {

	// Feature: Chat
	chatRepo := chat.NewPostgresRepo(db)
	chatService := chat.NewService(chatRepo, taskPub, cfg.ChatQueueName)
	chatHandler := chat.NewHandler(chatService)

	// Retrieval
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, cfg.RetrievalCandidates, cfg.RetrievalLimit, queryLogger)

	// Agent graph
	nodes, err := agent.NewNodes(gen, retrievalService, cfg.InstitutionName)
	if err != nil {
		return nil, fmt.Errorf("build agent nodes: %w", err)
	}
	graph, err := agent.New(nodes)
	if err != nil {
		return nil, fmt.Errorf("compile agent graph: %w", err)
	}

	// Worker (Chat Consumer)
	callTimeout := time.Duration(cfg.CallTimeoutSeconds) * time.Second
	chatConsumer := worker.NewChatConsumer(graph, chatRepo, taskPub, cfg.ResultTopic(), callTimeout)

	// Feature: Catalog
	catalogService := catalog.NewService(embedder, vecStore)
	catalogHandler := catalog.NewHandler(catalogService)

	// Feature: Stats
	statsHandler := stats.NewHandler(chatRepo, vecStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /chats", middleware.CorrelationID(enableCORS(chatHandler.Create)))
	mux.Handle("GET /chats", middleware.CorrelationID(enableCORS(chatHandler.List)))
	mux.Handle("GET /chats/{id}", middleware.CorrelationID(enableCORS(chatHandler.Get)))

	mux.Handle("POST /courses", middleware.CorrelationID(enableCORS(catalogHandler.Upsert)))
	mux.Handle("DELETE /courses/{code}", middleware.CorrelationID(enableCORS(catalogHandler.Delete)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:      mux,
		ChatService:  chatService,
		ChatConsumer: chatConsumer,
		port:         cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
