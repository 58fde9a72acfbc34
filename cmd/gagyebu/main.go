package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/hyeonwoo/gagyebu/internal/interpret"
	"github.com/hyeonwoo/gagyebu/internal/ledger"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("gagyebu")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		dbPath          = fs.StringLong("db", "gagyebu.db", "Database file path")
		imagesPath      = fs.StringLong("images", "./images", "Receipt image directory path")
		interpreterType = fs.StringLong("interpreter", "none", "Interpreter backend: 'gemini', 'ollama' or 'none'")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL       = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel     = fs.StringLong("ollama-model", "llama3.1", "Ollama model name (vision models like llava enable image extraction)")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		processOnStart  = fs.BoolLong("process-on-start", "Run one recurring sweep for today at startup")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("GAGYEBU"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	slog.Info("Initializing database...")
	db, err := ledger.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The engine and the image path degrade gracefully when no backend is
	// configured: text extraction falls back to the rule-based parsers and
	// image extraction reports unavailability.
	var interpreter interpret.Interpreter = interpret.Disabled{}
	var images interpret.ImageExtractor = interpret.Disabled{}

	switch *interpreterType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini interpreter...", "model", *geminiModel)
		gemini, err := interpret.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		interpreter, images = gemini, gemini
	case "ollama":
		slog.Info("Initializing Ollama interpreter...", "url", *ollamaURL, "model", *ollamaModel)
		ollama, err := interpret.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		interpreter, images = ollama, ollama
	case "none":
		slog.Info("No interpreter backend configured, using rule-based parsing only")
	default:
		slog.Error("Invalid interpreter type", "type", *interpreterType, "valid", "gemini, ollama or none")
		os.Exit(1)
	}
	defer interpreter.Close()

	slog.Info("Initializing image storage...")
	files, err := ledger.NewLocalFileStore(*imagesPath)
	if err != nil {
		slog.Error("Failed to initialize image storage", "error", err)
		os.Exit(1)
	}

	engine := interpret.NewEngine(interpreter)
	service := ledger.NewService(db, engine, images, files)
	scheduler := ledger.NewScheduler(db)

	if *processOnStart {
		created, err := scheduler.ProcessDue("")
		if err != nil {
			slog.Error("Startup recurring sweep failed", "error", err)
		} else {
			slog.Info("Startup recurring sweep finished", "created", len(created))
		}
	}

	basicAuth := ledger.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := ledger.NewServer(service, scheduler, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
