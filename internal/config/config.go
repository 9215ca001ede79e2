package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port              int
	DBDSN             string
	RedisURL          string
	JWTSecret         string
	JWTAccessTTL      time.Duration
	JWTRefreshTTL     time.Duration
	RoleRefreshWindow time.Duration
	RoleRefreshPolicy string
	AllowedDomain     string
	Google            GoogleConfig
	AllowOrigins      []string
	RateLimitPublic   RateLimitConfig
	RateLimitAuth     RateLimitConfig
	Storage           StorageConfig
}

// GoogleConfig agrupa credenciais do provedor OAuth.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// StorageConfig descreve o backend de upload de imagens.
type StorageConfig struct {
	Provider    string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	// Janela máxima que o papel embutido no token pode ficar sem revalidação no banco.
	refreshWindow, err := parseDurationEnv("ROLE_REFRESH_WINDOW", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.RoleRefreshWindow = refreshWindow

	// "keep" mantém o papel em cache quando a revalidação falha; "fail"
	// derruba a sessão (deployments mais rígidos).
	cfg.RoleRefreshPolicy = strings.ToLower(strings.TrimSpace(getEnv("ROLE_REFRESH_FAILURE_POLICY", "keep")))
	if cfg.RoleRefreshPolicy != "keep" && cfg.RoleRefreshPolicy != "fail" {
		return nil, errors.New("ROLE_REFRESH_FAILURE_POLICY deve ser keep ou fail")
	}

	cfg.AllowedDomain = strings.ToLower(strings.TrimSpace(getEnv("ALLOWED_EMAIL_DOMAIN", "")))
	if cfg.AllowedDomain == "" {
		return nil, errors.New("ALLOWED_EMAIL_DOMAIN obrigatório")
	}

	cfg.Google = GoogleConfig{
		ClientID:     strings.TrimSpace(getEnv("GOOGLE_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(getEnv("GOOGLE_CLIENT_SECRET", "")),
		RedirectURL:  strings.TrimSpace(getEnv("GOOGLE_REDIRECT_URL", "")),
	}

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.Storage = StorageConfig{
		Provider:    strings.TrimSpace(getEnv("STORAGE_PROVIDER", "noop")),
		S3Endpoint:  strings.TrimSpace(getEnv("STORAGE_S3_ENDPOINT", "")),
		S3Region:    strings.TrimSpace(getEnv("STORAGE_S3_REGION", "auto")),
		S3Bucket:    strings.TrimSpace(getEnv("STORAGE_S3_BUCKET", "")),
		S3AccessKey: strings.TrimSpace(getEnv("STORAGE_S3_ACCESS_KEY", "")),
		S3SecretKey: strings.TrimSpace(getEnv("STORAGE_S3_SECRET_KEY", "")),
		S3PublicURL: strings.TrimSpace(getEnv("STORAGE_S3_PUBLIC_URL", "")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
