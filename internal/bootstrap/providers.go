package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carcost-bot/internal/application"
	"carcost-bot/internal/config"
	"carcost-bot/internal/infrastructure/amocrm"
	"carcost-bot/internal/infrastructure/customs"
	"carcost-bot/internal/infrastructure/encar"
	"carcost-bot/internal/infrastructure/httpx"
	"carcost-bot/internal/infrastructure/logx"
	"carcost-bot/internal/infrastructure/pg"
	"carcost-bot/internal/infrastructure/queue"
	"carcost-bot/internal/infrastructure/rates"
	"carcost-bot/internal/infrastructure/session"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func provideHTTPClient(cfg config.Config) *httpx.Client {
	return &httpx.Client{HTTP: &http.Client{Timeout: cfg.RequestTimeout}}
}

// BuildRateKeeper wires the three rate sources. The bank source is optional
// and controlled by BANK_RATE_URL.
func BuildRateKeeper(cfg config.Config, log *zap.Logger) *application.RateKeeper {
	client := provideHTTPClient(cfg)
	usdtRub := &rates.SpotSource{
		BaseURL: cfg.SpotAPIBase,
		Margin:  cfg.RubMargin,
		Client:  client,
	}
	usdtKrw := &rates.SnippetSource{
		URL:    cfg.SearchRateURL,
		Margin: -cfg.KrwMargin,
		Client: client,
	}
	var rubKrw application.RateSource
	if cfg.BankRateURL != "" {
		rubKrw = &rates.SnippetSource{
			URL:    cfg.BankRateURL,
			Client: client,
		}
	}
	return application.NewRateKeeper(usdtKrw, usdtRub, rubKrw, log,
		application.WithRefreshInterval(cfg.RefreshEvery),
		application.WithRetryDelay(cfg.RefreshRetry),
	)
}

// BuildListingFetcher returns the cached listing client plus the raw client
// for the insurance-report endpoint.
func BuildListingFetcher(cfg config.Config) (application.ListingFetcher, *encar.Client) {
	raw := &encar.Client{
		BaseURL:   cfg.ListingAPIBase,
		PhotoBase: cfg.PhotoBase,
		Client:    provideHTTPClient(cfg),
	}
	return encar.NewCachedFetcher(raw, cfg.ListingCacheTTL), raw
}

func BuildQuoter(cfg config.Config) *application.Quoter {
	calc := &customs.Client{
		URL:    cfg.TariffURL,
		Client: provideHTTPClient(cfg),
	}
	return application.NewQuoter(calc, application.PricingConfig{
		FreightRub:  cfg.FreightRub,
		BrokerRub:   cfg.BrokerRub,
		DeliveryRub: cfg.DeliveryRub,
	})
}

func BuildCRM(cfg config.Config) application.LeadSender {
	return amocrm.NewClient(cfg.CrmSubdomain, cfg.CrmClientID, cfg.CrmClientSecret,
		amocrm.WithTokens(cfg.CrmAccessToken, cfg.CrmRefreshToken),
		amocrm.WithRedirectURI(cfg.CrmRedirectURL),
		amocrm.WithResponsible(cfg.CrmResponsibleID),
	)
}

// BuildQueue selects the lead buffer by STORAGE: a JSON file by default,
// Postgres when configured. The cleanup closes the pool.
func BuildQueue(ctx context.Context, cfg config.Config, log *zap.Logger) (application.LeadQueue, *pg.DB, func(), error) {
	switch cfg.Storage {
	case "pg":
		if cfg.DatabaseURL == "" {
			return nil, nil, func() {}, ErrMissingDBURL
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, func() {}, err
		}
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, func() {}, err
		}
		log.Info("lead queue ready", zap.String("storage", "pg"))
		return pg.NewLeadRepo(db), db, db.Close, nil
	default:
		log.Info("lead queue ready", zap.String("storage", "file"), zap.String("path", cfg.QueuePath))
		return queue.NewFileQueue(cfg.QueuePath), nil, func() {}, nil
	}
}

// BuildSessions selects the session store by SESSION_BACKEND.
func BuildSessions(cfg config.Config, log *zap.Logger) (application.SessionStore, func()) {
	if cfg.SessionBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Info("session store ready", zap.String("backend", "redis"), zap.String("addr", cfg.RedisAddr))
		return session.NewRedisStore(client, cfg.SessionTTL), func() { _ = client.Close() }
	}
	log.Info("session store ready", zap.String("backend", "memory"))
	return session.NewMemoryStore(), func() {}
}

func BuildController(sessions application.SessionStore, crm application.LeadSender,
	leads application.LeadQueue, quoter *application.Quoter,
	keeper *application.RateKeeper, log *zap.Logger) *application.Controller {
	return application.NewController(sessions, crm, leads, quoter, keeper, log)
}
