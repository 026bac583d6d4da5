package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gurugsv7/frauddetection/internal/config"
	"github.com/gurugsv7/frauddetection/internal/domain/claims"
	"github.com/gurugsv7/frauddetection/internal/domain/fraud"
	"github.com/gurugsv7/frauddetection/internal/platform/auth"
	"github.com/gurugsv7/frauddetection/internal/platform/db"
	"github.com/gurugsv7/frauddetection/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "claims-server",
		Short: "Insurance claims fraud-routing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the claims API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample claims for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			claimRepo, auditRepo, pool, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			svc := claims.NewService(claimRepo, auditRepo, logger)
			seeder := auth.Actor{ID: "seed", Name: "Seed Data"}

			for _, draft := range seedDrafts() {
				c, err := svc.SubmitClaim(ctx, draft, seeder)
				if err != nil {
					return fmt.Errorf("seeding claim for %s %s: %w",
						draft.Patient.FirstName, draft.Patient.LastName, err)
				}
				fmt.Printf("seeded %s (%s, $%.2f)\n", c.ID, c.HospitalName, c.ClaimAmount)
			}
			return nil
		},
	}
}

func seedDrafts() []*claims.ClaimDraft {
	date := func(s string) *time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return &t
	}
	return []*claims.ClaimDraft{
		{
			HospitalID:   "HOSP-001",
			HospitalName: "City General Hospital",
			Patient: claims.Patient{
				FirstName: "John", LastName: "Smith",
				DateOfBirth: date("1980-05-15"),
				InsuranceID: "INS-123456789",
				PhoneNumber: "(555) 123-4567",
				Address:     "123 Main St, Springfield, IL 62701",
			},
			Treatment: claims.Treatment{
				Description:   "Emergency appendectomy with complications",
				DiagnosisCode: "K35.9",
				ProcedureCode: "44970",
				TreatmentDate: date("2026-01-15"),
				ProviderID:    "DR-001",
			},
			ClaimAmount: 25000,
			Documents: []claims.Document{
				{ID: "DOC-001", Name: "surgical_report.pdf", Type: "bill", URL: "/documents/surgical_report.pdf", UploadedAt: time.Now().UTC()},
			},
		},
		{
			HospitalID:   "HOSP-001",
			HospitalName: "City General Hospital",
			Patient: claims.Patient{
				FirstName: "Maria", LastName: "Garcia",
				DateOfBirth: date("1975-08-22"),
				InsuranceID: "INS-987654321",
				PhoneNumber: "(555) 987-6543",
				Address:     "456 Oak Ave, Springfield, IL 62702",
			},
			Treatment: claims.Treatment{
				Description:   "Routine checkup and blood work",
				DiagnosisCode: "Z00.00",
				ProcedureCode: "99213",
				TreatmentDate: date("2026-01-18"),
				ProviderID:    "DR-002",
			},
			ClaimAmount: 450,
			Documents: []claims.Document{
				{ID: "DOC-002", Name: "lab_results.pdf", Type: "bill", URL: "/documents/lab_results.pdf", UploadedAt: time.Now().UTC()},
			},
		},
		{
			HospitalID:   "HOSP-003",
			HospitalName: "St. Mary Medical Center",
			Patient: claims.Patient{
				FirstName: "Robert", LastName: "Johnson",
				DateOfBirth: date("1962-12-03"),
				InsuranceID: "INS-456789123",
				PhoneNumber: "(555) 456-7890",
				Address:     "789 Pine St, Springfield, IL 62703",
			},
			Treatment: claims.Treatment{
				Description:   "Cardiac catheterization procedure",
				DiagnosisCode: "I25.10",
				ProcedureCode: "93458",
				TreatmentDate: date("2026-01-20"),
				ProviderID:    "DR-003",
			},
			ClaimAmount: 18500,
			Documents: []claims.Document{
				{ID: "DOC-003", Name: "cardiac_report.pdf", Type: "bill", URL: "/documents/cardiac_report.pdf", UploadedAt: time.Now().UTC()},
			},
		},
	}
}

// buildStore wires the configured claim store. The pool is nil for the
// in-memory driver.
func buildStore(ctx context.Context, cfg *config.Config) (claims.ClaimRepository, claims.AuditRepository, *pgxpool.Pool, error) {
	if cfg.StoreDriver == "memory" {
		return claims.NewInMemoryClaimRepo(), claims.NewInMemoryAuditRepo(), nil, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return claims.NewClaimRepoPG(pool), claims.NewAuditRepoPG(pool), pool, nil
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	claimRepo, auditRepo, pool, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build claim store")
	}
	if pool != nil {
		defer pool.Close()
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("using in-memory claim store, data will not survive restarts")
	}

	svc := claims.NewService(claimRepo, auditRepo, logger)

	var analyzer fraud.Analyzer
	switch cfg.FraudAnalyzer {
	case "remote":
		analyzer = fraud.NewRemoteAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.FraudModel, logger)
		logger.Info().Str("model", cfg.FraudModel).Msg("using remote fraud analyzer")
	default:
		analyzer = fraud.NewRuleEngine(fraud.NewStoreRecentClaimFinder(claimRepo))
		logger.Info().Msg("using rule-based fraud analyzer")
	}

	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	scheduler := fraud.NewScheduler(analyzer, svc, cfg.FraudWorkers, cfg.FraudQueueSize, logger)
	svc.SetAnalysisQueue(scheduler)
	scheduler.Start(schedCtx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	apiV1 := e.Group("/api/v1")
	claims.NewHandler(svc).RegisterRoutes(apiV1)

	// Serve in the background so we can handle shutdown signals.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	// Stop accepting requests first, then drain the analysis queue, then
	// release the pool (deferred).
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	scheduler.Stop()
	return nil
}
