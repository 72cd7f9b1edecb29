package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where finbrief stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your finbrief instance.
	InstanceURL string
	// Secret verifies the access tokens minted by the external auth service.
	Secret string

	// AI Configuration
	AIEnabled             bool   // FINBRIEF_AI_ENABLED
	AIEmbeddingProvider   string // FINBRIEF_AI_EMBEDDING_PROVIDER (default: openai)
	AIEmbeddingModel      string // FINBRIEF_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDimensions int    // FINBRIEF_AI_EMBEDDING_DIMENSIONS (default: 1536)
	AILLMProvider         string // FINBRIEF_AI_LLM_PROVIDER (default: openai)
	AILLMModel            string // FINBRIEF_AI_LLM_MODEL (default: gpt-4o-mini)
	AIOpenAIAPIKey        string // FINBRIEF_AI_OPENAI_API_KEY
	AIOpenAIBaseURL       string // FINBRIEF_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AISiliconFlowAPIKey   string // FINBRIEF_AI_SILICONFLOW_API_KEY
	AISiliconFlowBaseURL  string // FINBRIEF_AI_SILICONFLOW_BASE_URL (default: https://api.siliconflow.cn/v1)
	AIOllamaBaseURL       string // FINBRIEF_AI_OLLAMA_BASE_URL (default: http://localhost:11434)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and at least one provider is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIOpenAIAPIKey != "" || p.AISiliconFlowAPIKey != "" || p.AIOllamaBaseURL != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvOrDefault returns the environment variable parsed as int or the default value.
func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// FromEnv loads configuration from FINBRIEF_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("FINBRIEF_AI_ENABLED") == "true"
	p.AIEmbeddingProvider = getEnvOrDefault("FINBRIEF_AI_EMBEDDING_PROVIDER", "openai")
	p.AIEmbeddingModel = getEnvOrDefault("FINBRIEF_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIEmbeddingDimensions = getIntEnvOrDefault("FINBRIEF_AI_EMBEDDING_DIMENSIONS", 1536)
	p.AILLMProvider = getEnvOrDefault("FINBRIEF_AI_LLM_PROVIDER", "openai")
	p.AILLMModel = getEnvOrDefault("FINBRIEF_AI_LLM_MODEL", "gpt-4o-mini")
	p.AIOpenAIAPIKey = os.Getenv("FINBRIEF_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("FINBRIEF_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AISiliconFlowAPIKey = os.Getenv("FINBRIEF_AI_SILICONFLOW_API_KEY")
	p.AISiliconFlowBaseURL = getEnvOrDefault("FINBRIEF_AI_SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIOllamaBaseURL = getEnvOrDefault("FINBRIEF_AI_OLLAMA_BASE_URL", "http://localhost:11434")

	if p.Secret == "" {
		p.Secret = os.Getenv("FINBRIEF_SECRET")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported db driver %q: only 'postgres' and 'sqlite' are supported", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("finbrief_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
