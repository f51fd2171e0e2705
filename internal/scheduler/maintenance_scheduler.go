package scheduler

import (
	"context"
	"time"

	"github.com/batgear/batstore-backend/internal/app/service"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/batgear/batstore-backend/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const (
	JobCartCleanup   = "cart_cleanup"
	JobLowStockCheck = "low_stock_report"

	jobTimeout = 2 * time.Minute
)

type Config struct {
	CartItemTTL       time.Duration
	CartCleanupSpec   string
	LowStockThreshold int
	LowStockSpec      string
}

// MaintenanceScheduler runs the storefront housekeeping jobs
type MaintenanceScheduler struct {
	cron           *cron.Cron
	cartService    service.CartService
	productService service.ProductService
	jobs           *metrics.JobMetrics
	cfg            Config
}

func NewMaintenanceScheduler(
	cartService service.CartService,
	productService service.ProductService,
	jobs *metrics.JobMetrics,
	cfg Config,
) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:           cron.New(),
		cartService:    cartService,
		productService: productService,
		jobs:           jobs,
		cfg:            cfg,
	}
}

// Start registers both jobs and starts the cron loop
func (s *MaintenanceScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CartCleanupSpec, s.runJob(JobCartCleanup, s.CleanupCarts)); err != nil {
		logger.Error("Failed to add cron job for cart cleanup", err, map[string]interface{}{
			"spec": s.cfg.CartCleanupSpec,
		})
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.LowStockSpec, s.runJob(JobLowStockCheck, s.ReportLowStock)); err != nil {
		logger.Error("Failed to add cron job for low stock report", err, map[string]interface{}{
			"spec": s.cfg.LowStockSpec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Maintenance scheduler started", map[string]interface{}{
		"cart_cleanup": s.cfg.CartCleanupSpec,
		"low_stock":    s.cfg.LowStockSpec,
	})
	return nil
}

// Stop waits for running jobs to finish or ctx to expire
func (s *MaintenanceScheduler) Stop(ctx context.Context) error {
	logger.Info("Stopping maintenance scheduler...")
	select {
	case <-s.cron.Stop().Done():
		logger.Info("Maintenance scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MaintenanceScheduler) runJob(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := s.jobs.Track(name, func() error { return job(ctx) }); err != nil {
			logger.Error("Scheduled job failed", err, map[string]interface{}{
				"job": name,
			})
		}
	}
}

// CleanupCarts removes cart lines untouched for longer than the cart TTL
func (s *MaintenanceScheduler) CleanupCarts(ctx context.Context) error {
	removed, err := s.cartService.CleanupStale(ctx, s.cfg.CartItemTTL)
	if err != nil {
		return err
	}
	logger.Info("Stale cart items removed", map[string]interface{}{
		"removed": removed,
		"ttl":     s.cfg.CartItemTTL.String(),
	})
	return nil
}

// ReportLowStock logs every active product at or below the threshold
func (s *MaintenanceScheduler) ReportLowStock(ctx context.Context) error {
	products, err := s.productService.GetLowStockProducts(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}

	for _, p := range products {
		logger.Warn("Product stock is low", map[string]interface{}{
			"product_id": p.ID,
			"name":       p.Name,
			"stock":      p.Stock,
		})
	}
	logger.Info("Low stock report complete", map[string]interface{}{
		"count":     len(products),
		"threshold": s.cfg.LowStockThreshold,
	})
	return nil
}
