package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration for the detection backend
type Config struct {
	DBPath        string
	ModelPath     string  // default model artifact location ("" = conventional path)
	Contamination float64 // expected outlier fraction, 0 < c < 0.5
	BatchSize     int     // flights per pipeline batch
	MinConfidence float64 // reporting floor, not a decision threshold
	RandomSeed    int64
}

// Load loads configuration from the environment, with .env as a fallback
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[Config] Loaded environment from .env")
	}

	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "./data/flights/flights.db"),
		ModelPath:     getEnv("MODEL_PATH", ""),
		Contamination: getEnvFloat("CONTAMINATION", 0.1),
		BatchSize:     getEnvInt("BATCH_SIZE", 100),
		MinConfidence: getEnvFloat("MIN_CONFIDENCE", 0.0),
		RandomSeed:    int64(getEnvInt("RANDOM_SEED", 42)),
	}

	if cfg.Contamination <= 0 || cfg.Contamination >= 0.5 {
		log.Printf("[Config] CONTAMINATION=%v out of range (0, 0.5), using 0.1", cfg.Contamination)
		cfg.Contamination = 0.1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
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
		log.Printf("[Config] Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[Config] Invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}
