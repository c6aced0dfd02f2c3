package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"diversity_platform/reporting/auth"
	"diversity_platform/reporting/gql"
	"diversity_platform/reporting/schema"
	"diversity_platform/reporting/services"
	"diversity_platform/utils"
	"diversity_platform/utils/logging"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type platformConfig struct {
	DatabaseUri string `env:"DATABASE_URI,required"`
	JwtSecret   string `env:"JWT_SECRET,required"`

	AdminUsername string `env:"ADMIN_USERNAME,required"`
	AdminEmail    string `env:"ADMIN_MAIL,required"`
	AdminPassword string `env:"ADMIN_PASSWORD,required"`

	AuditLogPath string `env:"AUDIT_LOG_PATH" envDefault:"audit.log"`
	LogSource    bool   `env:"LOG_SOURCE"`

	Port int `env:"PORT" envDefault:"8000"`
}

func initDb(uri string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{})
	if err != nil {
		log.Panicf("error opening database connection: %v", err)
	}

	if err := db.AutoMigrate(schema.AllModels()...); err != nil {
		log.Panicf("error migrating db schema: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "Optional .env file to load before reading config")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	var cfg platformConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config from environment: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, logging.GetVictoriaLogsOptions(cfg.LogSource))))

	db := initDb(cfg.DatabaseUri)

	auditFile, err := os.OpenFile(cfg.AuditLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("error opening audit log file: %v", err)
	}
	defer auditFile.Close()
	auditLog := auth.NewAuditLogger(auditFile)

	userAuth, err := auth.NewBasicIdentityProvider(db, auditLog, auth.BasicProviderArgs{
		Secret:        []byte(cfg.JwtSecret),
		AdminUsername: cfg.AdminUsername,
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	})
	if err != nil {
		log.Fatalf("error initializing identity provider: %v", err)
	}

	userService := services.NewUserService(db, userAuth)

	gqlService, err := gql.NewService(db, userAuth, auditLog)
	if err != nil {
		log.Fatalf("error initializing graphql service: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Mount("/api/auth", userService.Routes())
	r.Mount("/api/graphql", gqlService.Routes())

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	slog.Info("starting server", "port", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%v", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
