package main

import (
	"context"
	"net/http"
	"time"

	"callnotes/internal/analysis"
	"callnotes/internal/audit"
	"callnotes/internal/auth"
	"callnotes/internal/calls"
	"callnotes/internal/config"
	"callnotes/internal/httpapi"
	"callnotes/internal/reporting"
	"callnotes/internal/throttle"
	"callnotes/internal/users"
	"callnotes/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type deps struct {
	handlers httpapi.Handlers
	tokens   *auth.Manager
}

// buildDeps constructs services from config. Keep this file free of business logic.
func buildDeps(cfg config.Config, sqlDB *sqlx.DB, rdb *redis.Client) (deps, error) {
	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return deps{}, err
	}

	auditSvc := audit.NewService(audit.NewSQLRepo(sqlDB))

	analyzer, err := analysis.NewClient(cfg.Analysis, &http.Client{})
	if err != nil {
		return deps{}, err
	}

	opts := calls.Options{Audit: auditSvc}
	if cfg.Analysis.MaxInFlight > 0 && rdb != nil {
		gate, err := throttle.NewRedisGate(rdb, cfg.Analysis.MaxInFlight, cfg.Analysis.Timeout+30*time.Second)
		if err != nil {
			return deps{}, err
		}
		opts.Gate = gate
	}
	callRepo := calls.NewSQLRepo(sqlDB)
	callSvc := calls.NewService(callRepo, analyzer, opts)

	userSvc, err := users.NewService(users.NewSQLRepo(sqlDB), users.NewHasher(cfg.Auth.BcryptCost), tokens, users.Options{
		AdminEmails: cfg.Auth.AdminEmails,
		Audit:       auditSvc,
	})
	if err != nil {
		return deps{}, err
	}

	checks := []httpapi.HealthCheck{{
		Name:  "db",
		Check: func(ctx context.Context) error { return utils.HealthCheck(ctx, sqlDB, 2*time.Second) },
	}}
	if rdb != nil {
		checks = append(checks, httpapi.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return utils.RedisHealth(ctx, rdb, 2*time.Second) },
		})
	}

	return deps{
		handlers: httpapi.Handlers{
			Calls:   callSvc,
			Users:   userSvc,
			Reports: reporting.NewService(callRepo),
			Audit:   auditSvc,
			Checks:  checks,
		},
		tokens: tokens,
	}, nil
}

func registerRoutes(r *gin.Engine, d deps) {
	httpapi.Register(r, d.handlers, auth.RequireAccessToken(d.tokens))
}
