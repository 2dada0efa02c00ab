package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-backend/cmd"
	"clinic-backend/internal/api"
	"clinic-backend/internal/database"
	"clinic-backend/internal/storage"
	"clinic-backend/internal/triage"
	"clinic-backend/internal/tts"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type APIConfig struct {
	DatabaseURL string `env:"DATABASE_URL,notEmpty,required"`
	APIPort     string `env:"API_PORT" envDefault:"8001"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY,notEmpty,required"`
	Model        string `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	VisionModel  string `env:"VISION_MODEL" envDefault:"gpt-4o"`

	// Attachments go to local disk unless an S3 endpoint/bucket is configured.
	AttachmentDir     string `env:"ATTACHMENT_DIR" envDefault:"./attachments"`
	S3Bucket          string `env:"ATTACHMENT_BUCKET"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	// Voice replies are disabled unless a TTS endpoint is configured.
	TTSBaseURL string `env:"TTS_BASE_URL"`
	TTSAPIKey  string `env:"TTS_API_KEY"`
	TTSModel   string `env:"TTS_MODEL" envDefault:"eleven_multilingual_v2"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var objects storage.ObjectStore
	if cfg.S3Bucket != "" {
		s3Provider, err := storage.NewS3Provider(context.Background(), storage.S3Config{
			EndpointURL:     cfg.S3EndpointURL,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
		})
		if err != nil {
			log.Fatalf("Failed to create S3 client: %v", err)
		}
		if err := s3Provider.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("Failed to create attachment bucket: %v", err)
		}
		objects = s3Provider
	} else {
		objects = storage.NewLocalProvider(cfg.AttachmentDir)
	}

	var voice triage.Synthesizer
	if cfg.TTSBaseURL != "" {
		voice = tts.NewClient(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSModel)
	}

	generator := triage.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.Model, cfg.VisionModel)
	pipeline := triage.NewService(db, generator, objects, voice)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(90 * time.Second)) // Model calls can be slow

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJsonResponse(w, map[string]string{"status": "ok"})
	})

	api.NewChatService(db, pipeline).AddRoutes(r)
	api.NewDirectoryService(db).AddRoutes(r)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
