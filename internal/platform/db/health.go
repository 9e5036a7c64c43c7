package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	Driver          Driver `json:"driver"`
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// Checker is the part of a database handle the health endpoint needs.
type Checker interface {
	Ping(ctx context.Context) error
	Stats() *PoolStats
}

// PGChecker adapts a pgx pool to Checker.
func PGChecker(pool *pgxpool.Pool) Checker { return pgChecker{pool} }

type pgChecker struct{ pool *pgxpool.Pool }

func (c pgChecker) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c pgChecker) Stats() *PoolStats {
	stat := c.pool.Stat()
	return &PoolStats{
		Driver:          Postgres,
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// SQLChecker adapts a database/sql handle to Checker.
func SQLChecker(sqlDB *sql.DB) Checker { return sqlChecker{sqlDB} }

type sqlChecker struct{ db *sql.DB }

func (c sqlChecker) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c sqlChecker) Stats() *PoolStats {
	stat := c.db.Stats()
	return &PoolStats{
		Driver:          SQLite,
		TotalConns:      int32(stat.OpenConnections),
		IdleConns:       int32(stat.Idle),
		AcquiredConns:   int32(stat.InUse),
		MaxConns:        int32(stat.MaxOpenConnections),
		AcquireCount:    stat.WaitCount,
		AcquireDuration: stat.WaitDuration.String(),
		Healthy:         true,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(checker Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := checker.Ping(ctx)
		stats := checker.Stats()

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
