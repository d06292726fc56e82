// Concierge Travel Planner Server
//
// HTTP service that plans day-by-day trip itineraries: retrieval over
// ingested city guides, weather/currency/POI lookups, an optional
// language-model rewrite, a critique/revise pass and ICS calendar export.
//
// Usage:
//
//	go run ./cmd/concierge                       # Default :8000
//	go run ./cmd/concierge -addr :8080           # Custom port
//	go run ./cmd/concierge -config concierge.yaml
//
// The OPENAI_API_KEY environment variable enables the language-model
// drafting step; without it the rule-based planner output is served as-is.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wayfarer-labs/concierge/calendar"
	"github.com/wayfarer-labs/concierge/config"
	"github.com/wayfarer-labs/concierge/llm"
	"github.com/wayfarer-labs/concierge/observability"
	"github.com/wayfarer-labs/concierge/pipeline"
	"github.com/wayfarer-labs/concierge/prefstore"
	"github.com/wayfarer-labs/concierge/retrieval"
	"github.com/wayfarer-labs/concierge/server"
	"github.com/wayfarer-labs/concierge/tools"
)

// Severity order for log level filtering.
var logLevels = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// stdLogger implements pipeline.Logger using standard library log. Messages
// below the configured minimum level are dropped.
type stdLogger struct {
	minLevel int
	fields   []any
}

func newStdLogger(level string) *stdLogger {
	min, ok := logLevels[strings.ToUpper(level)]
	if !ok {
		min = logLevels["INFO"]
	}
	return &stdLogger{minLevel: min}
}

func (l *stdLogger) logf(level, msg string, keysAndValues ...any) {
	if logLevels[level] < l.minLevel {
		return
	}
	kv := append(append([]any{}, l.fields...), keysAndValues...)
	log.Printf("[%s] %s %v", level, msg, kv)
}

func (l *stdLogger) Debug(msg string, keysAndValues ...any) { l.logf("DEBUG", msg, keysAndValues...) }
func (l *stdLogger) Info(msg string, keysAndValues ...any)  { l.logf("INFO", msg, keysAndValues...) }
func (l *stdLogger) Warn(msg string, keysAndValues ...any)  { l.logf("WARN", msg, keysAndValues...) }
func (l *stdLogger) Error(msg string, keysAndValues ...any) { l.logf("ERROR", msg, keysAndValues...) }

func (l *stdLogger) Bind(fields ...any) pipeline.Logger {
	return &stdLogger{
		minLevel: l.minLevel,
		fields:   append(append([]any{}, l.fields...), fields...),
	}
}

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger := newStdLogger(cfg.LogLevel)
	logger.Info("concierge_starting", "address", cfg.ListenAddr, "vectorstore", cfg.VectorstoreDir)

	// Tracing is optional; no endpoint means no exporter.
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer("concierge", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracing: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("tracer_shutdown_failed", "error", err.Error())
			}
		}()
		logger.Info("tracing_enabled", "endpoint", cfg.OTLPEndpoint)
	}

	// Storage and retrieval.
	index := retrieval.NewIndex(cfg.VectorstoreDir)
	retriever := retrieval.NewRetriever(index)
	ingestor := retrieval.NewIngestor(index, logger)
	ingestor.Cities = cfg.Cities

	// External lookups share one geocoder and its cache.
	lookupClient := &http.Client{Timeout: time.Duration(cfg.LookupTimeout) * time.Second}
	geocoder := tools.NewGeocoder(lookupClient, "")
	weather := tools.NewWeatherClient(geocoder, lookupClient, "")
	fx := tools.NewFXClient(lookupClient, "")
	pois := tools.NewPOIClient(geocoder, lookupClient, "")

	completer := llm.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel, time.Duration(cfg.LLMTimeout)*time.Second)

	runner, err := pipeline.NewRunner(pipeline.Deps{
		Retriever: retriever,
		Weather:   weather,
		Currency:  fx,
		POIs:      pois,
		LLM:       completer,
		Calendar:  calendar.NewExporter(cfg.ExportDir),
		Prefs:     prefstore.NewStore(cfg.PrefsPath),
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to wire pipeline: %v", err)
	}

	srv := server.New(runner, ingestor, index, retriever, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("concierge_ready", "address", cfg.ListenAddr)
		fmt.Printf("\nConcierge running on %s\n", cfg.ListenAddr)
		fmt.Println("Press Ctrl+C to stop")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := <-sigCh
	logger.Info("shutdown_signal_received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown_failed", "error", err.Error())
	}
	logger.Info("concierge_stopped")
}
