package sudoapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/Yiling-J/theine-go"
	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/datastore"
	"github.com/dardanova/dardanova/db"
	"github.com/dardanova/dardanova/email"
	"github.com/dardanova/dardanova/integrations/events"
	"github.com/dardanova/dardanova/internal/cache"
	"github.com/dardanova/dardanova/internal/config"
	"github.com/dardanova/dardanova/internal/memstore"
	"github.com/dardanova/dardanova/sudoapi/flags"
	"github.com/dardanova/dardanova/sudoapi/mdrenderer"
)

const cacheTTL = 20 * time.Second

type BaseAPI struct {
	store  Store
	mailer dardanova.Mailer
	rd     dardanova.MarkdownRenderer
	media  datastore.MediaStore

	publisher events.Publisher
	listCache cache.ListCache

	// session id -> user id, 0 for unknown or expired sessions
	sessionCache *theine.LoadingCache[string, int]
	userCache    *theine.LoadingCache[int, *dardanova.User]

	secret []byte
	now    func() time.Time
}

func (s *BaseAPI) Start(ctx context.Context) {
	go s.cleanupSessionsJob(ctx, time.Hour)
}

func (s *BaseAPI) Close() error {
	if err := s.publisher.Close(); err != nil {
		slog.Warn("Couldn't close event publisher", slog.Any("err", err))
	}
	if c, ok := s.listCache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Couldn't close list cache", slog.Any("err", err))
		}
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("couldn't close DB: %w", err)
	}
	return nil
}

func (s *BaseAPI) SetPublisher(p events.Publisher) {
	if p == nil {
		p = events.NoopPublisher{}
	}
	s.publisher = p
}

func (s *BaseAPI) SetListCache(c cache.ListCache) {
	if c == nil {
		c = cache.Noop{}
	}
	s.listCache = c
}

// SetClock replaces the time source used for sessions and uploads.
func (s *BaseAPI) SetClock(now func() time.Time) {
	s.now = now
}

func GetBaseAPI(store Store, media datastore.MediaStore, mailer dardanova.Mailer, secret []byte) (*BaseAPI, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty session secret")
	}
	if mailer == nil {
		mailer = email.LogMailer{}
	}
	base := &BaseAPI{
		store:  store,
		mailer: mailer,
		rd:     mdrenderer.NewRenderer(),
		media:  media,

		publisher: events.NoopPublisher{},
		listCache: cache.Noop{},

		secret: secret,
		now:    time.Now,
	}

	sessCache, err := theine.NewBuilder[string, int](2000).BuildWithLoader(func(ctx context.Context, sid string) (theine.Loaded[int], error) {
		user, err := base.store.User(ctx, dardanova.UserFilter{SessionID: &sid})
		if err != nil {
			return theine.Loaded[int]{}, err
		}
		uid := 0
		if user != nil {
			uid = user.ID
		}
		return theine.Loaded[int]{Value: uid, Cost: 1, TTL: cacheTTL}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not build session cache: %w", err)
	}
	base.sessionCache = sessCache

	userCache, err := theine.NewBuilder[int, *dardanova.User](500).BuildWithLoader(func(ctx context.Context, uid int) (theine.Loaded[*dardanova.User], error) {
		user, err := base.store.User(ctx, dardanova.UserFilter{ID: &uid})
		if err != nil {
			return theine.Loaded[*dardanova.User]{}, err
		}
		return theine.Loaded[*dardanova.User]{Value: user, Cost: 1, TTL: cacheTTL}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not build user cache: %w", err)
	}
	base.userCache = userCache

	return base, nil
}

// InitializeBaseAPI builds the API from the loaded configuration.
func InitializeBaseAPI(ctx context.Context) (*BaseAPI, error) {
	// Data directory setup
	if !path.IsAbs(config.Common.DataDir) {
		return nil, Statusf(400, "dataDir is not absolute")
	}
	if err := os.MkdirAll(config.Common.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("couldn't create data dir: %w", err)
	}

	media, err := initMediaStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize media store: %w", err)
	}

	var mailer dardanova.Mailer = email.LogMailer{}
	if config.Email.Enabled {
		m, err := email.NewMailer()
		if err != nil {
			slog.WarnContext(ctx, "Couldn't initialize mailer. Make sure you entered the correct information", slog.Any("err", err))
		} else {
			mailer = m
		}
	}

	store, err := OpenStore(ctx, flags.MigrateOnStart.Value())
	if err != nil {
		return nil, err
	}

	secret := []byte(config.Auth.Secret)
	if len(secret) == 0 {
		slog.WarnContext(ctx, "No auth secret configured, sessions will not survive a restart")
		secret = []byte(dardanova.RandomString(48))
	}

	base, err := GetBaseAPI(store, media, mailer, secret)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if config.Events.Enabled {
		pub, err := events.NewRabbitMQPublisher(config.Events.AMQPURL)
		if err != nil {
			slog.WarnContext(ctx, "Couldn't connect to RabbitMQ, events disabled", slog.Any("err", err))
		} else {
			base.SetPublisher(pub)
		}
	}

	if config.Cache.Enabled {
		c, err := cache.New(ctx, config.Cache.Host, config.Cache.Password, config.Cache.DB)
		if err != nil {
			slog.WarnContext(ctx, "Couldn't connect to Redis, listing cache disabled", slog.Any("err", err))
		} else {
			base.SetListCache(c)
		}
	}

	return base, nil
}

// OpenStore connects to the configured database, or returns an in-memory store if none is configured.
func OpenStore(ctx context.Context, migrate bool) (Store, error) {
	if config.Database.DSN == "" {
		slog.WarnContext(ctx, "No database configured, using in-memory store. Data will be lost on restart")
		return memstore.New(), nil
	}

	dbClient, err := db.NewPSQL(ctx, config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("couldn't connect to DB: %w", err)
	}
	slog.InfoContext(ctx, "Connected to DB")

	if migrate {
		if err := dbClient.RunMigrations(ctx); err != nil {
			_ = dbClient.Close()
			return nil, fmt.Errorf("couldn't run migrations: %w", err)
		}
	}
	return dbClient, nil
}

func initMediaStore(ctx context.Context) (datastore.MediaStore, error) {
	switch config.Storage.Backend {
	case "s3":
		return datastore.NewS3Store(ctx, datastore.S3Options{
			Bucket:    config.Storage.Bucket,
			Region:    config.Storage.Region,
			Endpoint:  config.Storage.Endpoint,
			AccessKey: config.Storage.AccessKey,
			SecretKey: config.Storage.SecretKey,
			PublicURL: config.Storage.PublicURL,
		})
	case "disk", "":
		return datastore.NewDiskStore(path.Join(config.Common.DataDir, "media"), "/media")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}
}

// Media returns the configured media store.
func (s *BaseAPI) Media() datastore.MediaStore {
	return s.media
}

func (s *BaseAPI) cleanupSessionsJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cnt, err := s.store.RemoveExpiredSessions(ctx)
			if err != nil {
				slog.WarnContext(ctx, "Couldn't remove expired sessions", slog.Any("err", err))
				continue
			}
			if cnt > 0 {
				slog.DebugContext(ctx, "Removed expired sessions", slog.Int64("count", cnt))
			}
		}
	}
}
