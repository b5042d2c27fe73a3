package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/repository"
	"github.com/segyhp/microcredit-engine/internal/service"
)

func main() {
	log.Println("Starting portfolio scheduler...")

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db, cfg.Business.LoanIDPrefix)
	scheduleRepo := repository.NewScheduleRepository(db)
	reportService := service.NewReportService(loanRepo, scheduleRepo, redisClient, cfg)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Schedule tasks
	setupCronJobs(c, reportService)

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, reportService *service.ReportService) {
	// Nightly portfolio refresh (runs at midnight): recomputes the aging and
	// NPL figures from current schedule data and rewrites the cached snapshot
	// so the morning dashboards open warm.
	_, err := c.AddFunc("0 0 0 * * *", func() {
		log.Println("Running nightly portfolio refresh...")
		refreshPortfolio(reportService)
	})
	if err != nil {
		log.Printf("Error scheduling nightly portfolio refresh: %v", err)
	}

	// Collector briefing refresh (weekdays at 7 AM), ahead of field visits.
	_, err = c.AddFunc("0 0 7 * * MON-FRI", func() {
		log.Println("Running collector briefing refresh...")
		refreshPortfolio(reportService)
	})
	if err != nil {
		log.Printf("Error scheduling collector briefing refresh: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}

func refreshPortfolio(reportService *service.ReportService) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := reportService.Refresh(ctx)
	if err != nil {
		log.Printf("Portfolio refresh failed: %v", err)
		return
	}

	log.Printf("Portfolio refreshed: %d active loans, outstanding %s, NPL rate %s%%, %d accounts overdue",
		report.KPI.ActiveLoans,
		report.KPI.TotalOutstanding,
		report.KPI.NPLRate,
		len(report.TopOverdue),
	)
}
