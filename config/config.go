package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the service reads from the environment. Loaded
// once at startup and passed down explicitly; no package holds onto it.
type Config struct {
	ListenAddr    string
	DataDir       string
	LibraryPath   string
	QuestionsPath string
	QuestionCount int

	OpenAIKey     string
	OracleModel   string
	OracleTimeout time.Duration

	NATSURL string // empty runs an embedded server
}

// Load reads .env (if present) and the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := Config{
		ListenAddr:    getEnv("FELIX_LISTEN_ADDR", ":8080"),
		DataDir:       getEnv("FELIX_DATA_DIR", "data"),
		QuestionsPath: getEnv("FELIX_QUESTIONS_FILE", "data/felix_questions.json"),
		QuestionCount: getEnvInt("FELIX_QUESTION_COUNT", 7),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OracleModel:   os.Getenv("FELIX_ORACLE_MODEL"),
		OracleTimeout: time.Duration(getEnvInt("FELIX_ORACLE_TIMEOUT_SEC", 60)) * time.Second,
		NATSURL:       os.Getenv("FELIX_NATS_URL"),
	}
	cfg.LibraryPath = getEnv("FELIX_LIBRARY_FILE", cfg.DataDir+"/trait_library.json")

	if cfg.OpenAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY environment variable not set")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using %d", key, v, fallback)
		return fallback
	}
	return n
}
