package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env holds the environment-derived configuration named in SPEC_FULL.md §6.
// Unset required values fail startup (LoadEnv returns an error wrapping
// ErrMissingEnv for each one).
type Env struct {
	LLMAPIKey        string
	LLMBaseURL       string
	StoreURL         string
	StoreKey         string
	JWTAudience      string
	JWTSecret        string
	ModRegistryBaseURL string
	ServerPort       string

	DedupTTLSeconds           int
	RequestBudgetAssemblySeconds int
	RequestBudgetCrashSeconds    int
	UseV3Default              bool
}

// requiredEnvVars are validated as present (non-empty) at startup.
var requiredEnvVars = []string{
	"LLM_API_KEY",
	"STORE_URL",
	"JWT_AUDIENCE",
	"JWT_SECRET",
	"MOD_REGISTRY_BASE_URL",
}

// LoadEnv reads and validates the process environment, mirroring the
// teacher's fail-fast Initialize() startup contract.
func LoadEnv() (*Env, error) {
	var missing []string
	for _, name := range requiredEnvVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingEnv, missing)
	}

	env := &Env{
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		LLMBaseURL:         os.Getenv("LLM_BASE_URL"),
		StoreURL:           os.Getenv("STORE_URL"),
		StoreKey:           os.Getenv("STORE_KEY"),
		JWTAudience:        os.Getenv("JWT_AUDIENCE"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ModRegistryBaseURL: os.Getenv("MOD_REGISTRY_BASE_URL"),
		ServerPort:         getEnvDefault("SERVER_PORT", "8080"),

		DedupTTLSeconds:              getEnvInt("DEDUP_TTL_SECONDS", 3600),
		RequestBudgetAssemblySeconds: getEnvInt("REQUEST_BUDGET_ASSEMBLY_S", 180),
		RequestBudgetCrashSeconds:    getEnvInt("REQUEST_BUDGET_CRASH_S", 120),
		UseV3Default:                getEnvBool("USE_V3_DEFAULT", false),
	}
	return env, nil
}

// DedupTTL returns the configured dedup cache TTL as a time.Duration.
func (e *Env) DedupTTL() time.Duration {
	return time.Duration(e.DedupTTLSeconds) * time.Second
}

// AssemblyBudget returns the per-request assembly pipeline deadline (§5).
func (e *Env) AssemblyBudget() time.Duration {
	return time.Duration(e.RequestBudgetAssemblySeconds) * time.Second
}

// CrashBudget returns the per-request crash pipeline deadline (§5).
func (e *Env) CrashBudget() time.Duration {
	return time.Duration(e.RequestBudgetCrashSeconds) * time.Second
}

func getEnvDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getEnvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
