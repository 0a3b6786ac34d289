package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"prodavnica-api/handlers"
	"prodavnica-api/internal/auth"
	"prodavnica-api/internal/cart"
	"prodavnica-api/internal/catalog"
	"prodavnica-api/internal/consul"
	"prodavnica-api/internal/notify"
	"prodavnica-api/internal/orders"
	"prodavnica-api/internal/profiles"
	"prodavnica-api/internal/promo"
	"prodavnica-api/internal/stores/kafka"
	"prodavnica-api/migrations"
	"prodavnica-api/pkg/logkey"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := runMigrations(db); err != nil {
		return err
	}

	redisClient, err := openRedis()
	if err != nil {
		return err
	}
	defer redisClient.Close()

	keys, err := loadAuthKeys()
	if err != nil {
		return err
	}

	catalogConf, err := catalog.NewConf(db)
	if err != nil {
		return err
	}
	promoConf, err := promo.NewConf(db)
	if err != nil {
		return err
	}
	profilesConf, err := profiles.NewConf(db)
	if err != nil {
		return err
	}
	ordersConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}

	persister, err := cart.NewRedisPersister(redisClient)
	if err != nil {
		return err
	}
	carts, err := cart.NewStore(persister)
	if err != nil {
		return err
	}

	// Consul is optional: without it the notification endpoint must be
	// configured statically via NOTIFY_BASE_URL.
	consulClient, err := consul.NewClient()
	if err != nil {
		slog.Error("consul client init failed, falling back to static notification endpoint",
			slog.String(logkey.ERROR, err.Error()))
		consulClient = nil
	}
	if os.Getenv("CONSUL_HTTP_ADDR") == "" {
		consulClient = nil
	}

	notifier, err := notify.NewClient(os.Getenv("NOTIFY_BASE_URL"), consulClient)
	if err != nil {
		return err
	}

	var producer orders.EventProducer
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConf, err := kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return err
		}
		defer kafkaConf.Close()
		producer = kafkaConf
	}

	pipeline, err := orders.NewPipeline(ordersConf, carts, notifier, producer)
	if err != nil {
		return err
	}

	h := handlers.NewHandler(handlers.Deps{
		Catalog:  catalogConf,
		Reader:   &catalogConf,
		Carts:    carts,
		Promos:   promoConf,
		Resolver: &promoConf,
		Orders:   ordersConf,
		Pipeline: pipeline,
		Profiles: profilesConf,
		Contact:  notifier,
	})

	prefix := os.Getenv("SERVICE_ENDPOINT_PREFIX")
	if prefix == "" {
		prefix = "/v1"
	}
	engine := handlers.API(prefix, keys, h)

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", p, err)
		}
	}

	if consulClient != nil {
		host := os.Getenv("SERVICE_HOST")
		if host == "" {
			host, _ = os.Hostname()
		}
		if err := consul.RegisterService(consulClient, "prodavnica", fmt.Sprintf("prodavnica-%d", port), host, port); err != nil {
			slog.Error("consul registration failed", slog.String(logkey.ERROR, err.Error()))
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

func openDB() (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func openRedis() (*redis.Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func loadAuthKeys() (*auth.Keys, error) {
	publicPath := os.Getenv("AUTH_PUBLIC_KEY_FILE")
	if publicPath == "" {
		return nil, fmt.Errorf("AUTH_PUBLIC_KEY_FILE is not set")
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}

	var privatePEM []byte
	if privatePath := os.Getenv("AUTH_PRIVATE_KEY_FILE"); privatePath != "" {
		privatePEM, err = os.ReadFile(privatePath)
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}
	}
	return auth.NewKeys(privatePEM, publicPEM)
}
