// modforge is the modpack assembly and crash-analysis engine's server
// entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/modforge/assembly/pkg/categorizer"
	"github.com/modforge/assembly/pkg/config"
	"github.com/modforge/assembly/pkg/crash"
	"github.com/modforge/assembly/pkg/database"
	"github.com/modforge/assembly/pkg/embedder"
	"github.com/modforge/assembly/pkg/events"
	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/modregistry"
	"github.com/modforge/assembly/pkg/orchestrator"
	"github.com/modforge/assembly/pkg/planner"
	"github.com/modforge/assembly/pkg/quota"
	"github.com/modforge/assembly/pkg/retrieval"
	"github.com/modforge/assembly/pkg/selector"
	"github.com/modforge/assembly/pkg/store"
	"github.com/modforge/assembly/pkg/api"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}
	env := cfg.Env

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL database")

	provider, err := buildLLMProvider(ctx, cfg, env)
	if err != nil {
		log.Fatalf("Failed to build LLM provider: %v", err)
	}
	gateway := llmgw.New(provider, slog.Default())

	modStore := store.New(dbClient.DB())
	registryClient := modregistry.New(env.ModRegistryBaseURL)

	queryPlanner := planner.NewQueryPlanner(gateway)
	archPlanner := planner.NewArchitecturePlanner(gateway)
	retriever := retrieval.New(modStore, embedder.New(), cfg.Defaults.FanoutLimit)
	finalSelector := selector.New(gateway)
	cat := categorizer.New(gateway)

	crashAnalyzer := crash.NewAnalyzer(gateway)
	fixPlanner := crash.NewFixPlanner(registryClient)
	crashPipeline := crash.New(crashAnalyzer, fixPlanner, modStore, env.DedupTTL())

	quotaGate := quota.New(modStore, cfg.TierRegistry, time.Now)

	orch := orchestrator.New(orchestrator.Deps{
		QueryPlanner: queryPlanner,
		ArchPlanner:  archPlanner,
		Retriever:    retriever,
		Selector:     finalSelector,
		Categorizer:  cat,
		CrashPipe:    crashPipeline,
		ModStore:     modStore,
		Embedder:     embedder.New(),
		Quota:        quotaGate,
		Bridge:       cfg.Defaults.Bridge,
	})

	eventsManager := events.NewManager()

	server := api.NewServer(cfg, env, dbClient, modStore, orch, eventsManager)
	if err := server.ValidateWiring(); err != nil {
		log.Fatalf("Server wiring incomplete: %v", err)
	}

	addr := ":" + env.ServerPort
	log.Printf("Starting modforge on %s", addr)
	if err := server.Start(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildLLMProvider constructs the concrete llmgw.Provider named by the
// config's default LLM provider entry (§4.E, §11), dispatching on its
// configured kind.
func buildLLMProvider(ctx context.Context, cfg *config.Config, env *config.Env) (llmgw.Provider, error) {
	name := cfg.Defaults.LLMProvider
	providerCfg, err := cfg.LLMProviderRegistry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("resolving default LLM provider %q: %w", name, err)
	}

	switch providerCfg.Type {
	case config.LLMProviderGenAI:
		return llmgw.NewGenAIProvider(ctx, env.LLMAPIKey, providerCfg.Model)
	case config.LLMProviderOpenAI:
		return llmgw.NewOpenAIProvider(env.LLMBaseURL, env.LLMAPIKey, providerCfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider type %q", providerCfg.Type)
	}
}
