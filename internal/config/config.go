package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// Telegram
	BotToken       string
	ChannelHandle  string // channel the user must be subscribed to, with @
	ManagerContact string
	// Rate sources
	SpotAPIBase    string
	SearchRateURL  string
	BankRateURL    string // empty disables the bank conversion path
	RubMargin      float64
	KrwMargin      float64
	RefreshEvery   time.Duration
	RefreshRetry   time.Duration
	RequestTimeout time.Duration
	// Listing
	ListingAPIBase  string
	PhotoBase       string
	ListingCacheTTL time.Duration
	// Customs
	TariffURL string
	// Pricing
	FreightRub  int64
	BrokerRub   int64
	DeliveryRub int64
	// CRM (amoCRM)
	CrmSubdomain     string
	CrmClientID      string
	CrmClientSecret  string
	CrmRedirectURL   string
	CrmAccessToken   string
	CrmRefreshToken  string
	CrmResponsibleID int64
	// Lead storage
	Storage     string // "file" or "pg"
	QueuePath   string
	DatabaseURL string
	// Sessions
	SessionBackend string // "redis" or "memory"
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration
	// API process
	Port string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func floatDef(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func durMS(key string, defMS int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(defMS)), defMS)) * time.Millisecond
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:      getEnv("ENV", "local"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BotToken:       getEnv("BOT_TOKEN", ""),
		ChannelHandle:  getEnv("CHANNEL_HANDLE", ""),
		ManagerContact: getEnv("MANAGER_CONTACT", "https://t.me/kkkkww12"),

		SpotAPIBase:    getEnv("SPOT_API_BASE", "https://api.coinbase.com"),
		SearchRateURL:  getEnv("SEARCH_RATE_URL", "https://search.naver.com/search.naver?where=nexearch&query=USDT"),
		BankRateURL:    getEnv("BANK_RATE_URL", ""),
		RubMargin:      floatDef(getEnv("RUB_MARGIN", "2"), 2),
		KrwMargin:      floatDef(getEnv("KRW_MARGIN", "10"), 10),
		RefreshEvery:   durMS("RATE_REFRESH_MS", 60*60*1000),
		RefreshRetry:   durMS("RATE_RETRY_MS", 60*1000),
		RequestTimeout: durMS("REQUEST_TIMEOUT_MS", 15000),

		ListingAPIBase:  getEnv("LISTING_API_BASE", "https://api.encar.com"),
		PhotoBase:       getEnv("PHOTO_BASE", "https://ci.encar.com"),
		ListingCacheTTL: durMS("LISTING_CACHE_TTL_MS", 10*60*1000),

		TariffURL: getEnv("TARIFF_URL", "https://calcus.ru/calculate/Customs"),

		FreightRub:  int64(atoiDef(getEnv("FREIGHT_RUB", "100000"), 100000)),
		BrokerRub:   int64(atoiDef(getEnv("BROKER_RUB", "100000"), 100000)),
		DeliveryRub: int64(atoiDef(getEnv("DELIVERY_RUB", "0"), 0)),

		CrmSubdomain:     getEnv("AMOCRM_SUBDOMAIN", ""),
		CrmClientID:      getEnv("AMOCRM_CLIENT_ID", ""),
		CrmClientSecret:  getEnv("AMOCRM_CLIENT_SECRET", ""),
		CrmRedirectURL:   getEnv("AMOCRM_REDIRECT_URL", ""),
		CrmAccessToken:   getEnv("AMOCRM_ACCESS_TOKEN", ""),
		CrmRefreshToken:  getEnv("AMOCRM_REFRESH_TOKEN", ""),
		CrmResponsibleID: int64(atoiDef(getEnv("AMOCRM_RESPONSIBLE_ID", "0"), 0)),

		Storage:     getEnv("STORAGE", "file"),
		QueuePath:   getEnv("QUEUE_PATH", "backup_leads.json"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        atoiDef(getEnv("REDIS_DB", "0"), 0),
		SessionTTL:     durMS("SESSION_TTL_MS", 30*60*1000),

		Port: getEnv("PORT", "8080"),
	}
}
