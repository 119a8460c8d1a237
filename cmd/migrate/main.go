// Command migrate rewrites predictions that still carry the legacy viable
// columns into the non-viable form and clears the legacy columns.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lottoinsight/internal/config"
	"lottoinsight/internal/infrastructure/database"
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"

	"github.com/sirupsen/logrus"
)

const batchSize = 200

type migrationStats struct {
	Scanned   int
	Converted int
	Cleared   int
	Skipped   int
}

type legacyMigrator struct {
	repo   *repository.PredictionRepository
	log    *logrus.Logger
	dryRun bool
}

// Run walks every legacy record once. A record with non-viable data keeps
// it and only loses the legacy columns; a record with legacy data only gets
// the complement as its non-viable set. A legacy set covering the whole range
// has an empty complement and is left as it is.
func (m *legacyMigrator) Run(ctx context.Context) (migrationStats, error) {
	var (
		stats   migrationStats
		afterID int64
	)
	for {
		batch, err := m.repo.ListLegacyAfter(ctx, afterID, batchSize)
		if err != nil {
			return stats, fmt.Errorf("list legacy predictions: %w", err)
		}
		if len(batch) == 0 {
			return stats, nil
		}
		for _, p := range batch {
			afterID = p.ID
			stats.Scanned++
			if err := m.migrate(ctx, p, &stats); err != nil {
				return stats, err
			}
		}
	}
}

func (m *legacyMigrator) migrate(ctx context.Context, p *model.Prediction, stats *migrationStats) error {
	entry := m.log.WithFields(logrus.Fields{"prediction_id": p.ID, "lottery": p.LotteryCode})

	def, err := lottery.Lookup(p.LotteryCode)
	if err != nil {
		entry.Warn("unknown lottery, left untouched")
		stats.Skipped++
		return nil
	}

	legacy := p.LegacyViable()
	switch {
	case !p.NonViable().Empty(), legacy.Empty():
		stats.Cleared++
	default:
		nonViable := def.NonViableFromLegacy(legacy)
		if nonViable.Empty() {
			entry.Warn("legacy numbers cover the whole range, left untouched")
			stats.Skipped++
			return nil
		}
		if err := p.SetNonViable(nonViable); err != nil {
			return fmt.Errorf("prediction %d: %w", p.ID, err)
		}
		stats.Converted++
	}
	p.ClearLegacyViable()

	if m.dryRun {
		entry.Info("dry run: would migrate")
		return nil
	}
	if err := m.repo.Save(ctx, nil, p); err != nil {
		return fmt.Errorf("save prediction %d: %w", p.ID, err)
	}
	entry.Debug("migrated")
	return nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	db, err := database.InitMySQL(&cfg.MySQL, false, log)
	if err != nil {
		log.WithError(err).Fatal("init mysql")
	}

	m := &legacyMigrator{repo: repository.NewPredictionRepository(db), log: log, dryRun: *dryRun}
	stats, err := m.Run(context.Background())
	log.WithFields(logrus.Fields{
		"scanned":   stats.Scanned,
		"converted": stats.Converted,
		"cleared":   stats.Cleared,
		"skipped":   stats.Skipped,
		"dry_run":   *dryRun,
	}).Info("legacy migration finished")
	if err != nil {
		log.WithError(err).Error("legacy migration failed")
		os.Exit(1)
	}
}
