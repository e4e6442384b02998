package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/cardfit-services/configs"
	mongodb "github.com/avvvet/cardfit-services/internal/db"
	nats "github.com/avvvet/cardfit-services/internal/nats"
	"github.com/avvvet/cardfit-services/internal/ranksvc/broker"
	svcconfig "github.com/avvvet/cardfit-services/internal/ranksvc/config"
	"github.com/avvvet/cardfit-services/internal/ranksvc/db"
	handlers "github.com/avvvet/cardfit-services/internal/ranksvc/handlers"
	"github.com/avvvet/cardfit-services/internal/ranksvc/service"
	"github.com/avvvet/cardfit-services/internal/ranksvc/store"
	"github.com/avvvet/cardfit-services/internal/ranksvc/ws"
	"github.com/avvvet/cardfit-services/internal/scoring"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "rank"

var instanceId string

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
}

// openRepository builds the configured card store. The returned func
// releases its connections.
func openRepository(ctx context.Context, cfg svcconfig.Config) (store.CardRepository, func(), error) {
	switch cfg.CardStore {
	case svcconfig.StorePostgres:
		dbpool, err := db.Connect(cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("pg connection established successfully")
		pg := store.NewPostgresCardStore(dbpool)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.ClosePool()
			return nil, nil, err
		}
		return pg, db.ClosePool, nil
	case svcconfig.StoreMongo:
		mdb, err := mongodb.ConnectToDB(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("mongo connection established successfully")
		if err := mongodb.CreateUniqueIndex(ctx, mdb, store.CardsCollection, "id"); err != nil {
			log.Warnf("unable to ensure cards index: %s", err)
		}
		return store.NewMongoCardStore(mdb), func() { _ = mongodb.Disconnect(context.Background(), mdb) }, nil
	default:
		log.Printf("serving catalog file %s", cfg.CardsFile)
		return store.NewFileCardStore(cfg.CardsFile), func() {}, nil
	}
}

// usesCatalogCache reports whether the catalog is cached in front of the
// store. The file store is read on every call so edits apply without a
// restart; only database stores are cached.
func usesCatalogCache(cfg svcconfig.Config) bool {
	return cfg.CardStore != svcconfig.StoreFile
}

// openCache returns Redis when addr is set and reachable, and an in-process
// cache otherwise.
func openCache(ctx context.Context, addr string) (store.Cache, func()) {
	if addr == "" {
		return store.NewMemoryCache(), func() {}
	}
	rc := store.NewRedisCache(addr)
	if err := rc.Ping(ctx); err != nil {
		log.Warnf("redis at %s unreachable, using in-process cache: %s", addr, err)
		rc.Close()
		return store.NewMemoryCache(), func() {}
	}
	log.Printf("redis cache connected at %s", addr)
	return rc, func() { rc.Close() }
}

func main() {
	ctx := context.Background()

	cfg, err := svcconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	rules, err := scoring.LoadRuleset(cfg.RulesetFile)
	if err != nil {
		log.Fatalf("Failed to load ruleset: %v", err)
	}
	log.Infof("scoring with ruleset %s", rules.Version)

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open card store: %v", err)
	}
	defer closeRepo()

	var catalog store.CardRepository = repo
	if usesCatalogCache(cfg) {
		cache, closeCache := openCache(ctx, cfg.RedisAddr)
		defer closeCache()
		catalog = store.NewCachedCardStore(repo, cache, store.CatalogKey(rules.Version), cfg.CacheTTL)
	}

	rankService := service.NewRankService(catalog, scoring.NewEngine(rules))

	// Connect to NATS; the HTTP api keeps working without it
	var sub interface{ Unsubscribe() error }
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()

	b := broker.NewBroker(nil, rankService, cfg.ResultsTopic, instanceId)
	n, err := nats.Connect(SERVICE_NAME+"-"+instanceId, cfg.NatsURL, cfg.NatsToken)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
	} else {
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		b = broker.NewBroker(n.Conn, rankService, cfg.ResultsTopic, instanceId)
		s, err := b.SubscribeRankService(cfg.NatsTopic, SERVICE_NAME+"-workers")
		if err != nil {
			log.Fatalf("Error: unable to subscribe to queue %v", err)
		}
		sub = s
		go b.Heartbeat(hbCtx, "ranking.heartbeat", 10*time.Second)
	}

	// Setup router
	r := chi.NewRouter()
	// the websocket origin check uses the same list as CORS
	origins := config.AllowedOrigins(cfg.CORSOrigins)
	c := config.CORS(origins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(rankService, instanceId)
	h.InitAuth(cfg.JWTSecret)
	sockets := ws.NewWs(b, origins)
	h.SetSocket(sockets)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	stopHeartbeat()
	if sub != nil {
		sub.Unsubscribe()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	sockets.CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
