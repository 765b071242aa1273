// Command membership-sync rebuilds RBAC category memberships from the
// federated group tables on a schedule, so group changes made in an
// external identity provider reach the visibility engine.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mediacms-io/mediacms-go/pkg/identity"
)

var (
	dbURL        = flag.String("db-url", getEnv("MEDIACMS_POSTGRES_URL", "postgres://localhost/mediacms?sslmode=disable"), "PostgreSQL connection URL")
	syncSchedule = flag.String("schedule", "*/15 * * * *", "Cron schedule for membership sync (default: every 15 minutes)")
	runOnce      = flag.Bool("run-once", false, "Run one sync and exit (for testing or manual resync)")
	syncTimeout  = flag.Duration("timeout", 5*time.Minute, "Timeout for a single sync run")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}

	syncer := identity.NewSyncer(db, nil)

	if *runOnce {
		if err := runSync(syncer, log); err != nil {
			log.WithError(err).Fatal("sync failed")
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*syncSchedule, func() {
		if err := runSync(syncer, log); err != nil {
			log.WithError(err).Error("scheduled sync failed")
		}
	})
	if err != nil {
		log.WithError(err).Fatal("failed to schedule sync")
	}

	c.Start()
	log.WithField("schedule", *syncSchedule).Info("membership sync started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	ctx := c.Stop()
	<-ctx.Done()
	log.Info("membership sync stopped")
}

func runSync(syncer *identity.Syncer, log *logrus.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), *syncTimeout)
	defer cancel()

	result, err := syncer.SyncMemberships(ctx)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"inserted": result.Inserted,
		"deleted":  result.Deleted,
		"duration": result.Duration.String(),
	}).Info("membership sync complete")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
