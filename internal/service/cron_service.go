// Package service contains the service layer for the Marketplace API
package service

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/repository"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
)

// CronService is the service for the cron jobs
type CronService struct {
	cfg            *config.Config
	db             *gorm.DB
	c              *cron.Cron
	listingService *ListingService
}

// NewCronService creates a new CronService
func NewCronService(cfg *config.Config, db *gorm.DB) *CronService {
	listingRepo := repository.NewListingRepository(db)
	userRepo := repository.NewUserRepository(db)
	mailService := NewMailService(cfg)
	listingService := NewListingService(listingRepo, userRepo, mailService)

	return &CronService{
		cfg:            cfg,
		db:             db,
		c:              cron.New(),
		listingService: listingService,
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// Add your SCHEDULED jobs here
	// ------------------------------------------------------------
	cs.addScheduledJob("Stale Pending RELEASE Job", cs.stalePendingReleaseJob, "15 * * * *") // Hourly at :15
	cs.addScheduledJob("App Logs PRUNE Job", cs.appLogsPruneJob, "30 3 * * *")              // Once at 03:30am

	// ------------------------------------------------------------
	// Add your STARTUP jobs here
	// ------------------------------------------------------------
	cs.addStartupJob("Stale Pending RELEASE Job", cs.stalePendingReleaseJob, 10*time.Second)

	cs.c.Start()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("Running startup job", zaplogger.Fields{"job": name})
		job()
	}()
}

// addScheduledJob adds a scheduled job to the cron service
func (cs *CronService) addScheduledJob(name string, job func(), spec string) {
	_, err := cs.c.AddFunc(spec, job)
	if err != nil {
		zaplogger.Error("Failed to schedule job", zaplogger.Fields{"job": name, "error": err.Error()})
		return
	}
	zaplogger.Info("Scheduled job", zaplogger.Fields{"job": name, "spec": spec})
}

// stalePendingReleaseJob reverts listings stuck in pending back to available
func (cs *CronService) stalePendingReleaseJob() {
	released, err := cs.listingService.ReleaseStalePending(cs.cfg.PendingMaxAge)
	if err != nil {
		zaplogger.Error("Stale pending release failed", zaplogger.Fields{"error": err.Error()})
		return
	}
	if released > 0 {
		zaplogger.Info("Released stale pending listings", zaplogger.Fields{"count": released})
	}
}

// appLogsPruneJob deletes log rows older than the retention window
func (cs *CronService) appLogsPruneJob() {
	cutoff := time.Now().Add(-cs.cfg.LogRetention)
	result := cs.db.Where("timestamp < ?", cutoff).Delete(&zaplogger.LogModel{})
	if result.Error != nil {
		zaplogger.Error("App logs prune failed", zaplogger.Fields{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected > 0 {
		zaplogger.Info("Pruned app logs", zaplogger.Fields{"count": result.RowsAffected})
	}
}
