package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bestsbot/backend/internal/config"
	"github.com/bestsbot/backend/internal/logging"
	"github.com/bestsbot/backend/internal/metrics"
	"github.com/bestsbot/backend/internal/storage/jsonfile"
)

// backupJob snapshots the jsonfile data directory on a cron schedule.
type backupJob struct {
	cron  *cron.Cron
	store *jsonfile.Store
	dir   string
	log   *logging.Logger
}

func newBackupJob(cfg config.BackupConfig, store *jsonfile.Store, log *logging.Logger) (*backupJob, error) {
	job := &backupJob{
		cron:  cron.New(),
		store: store,
		dir:   cfg.Dir,
		log:   log,
	}

	if _, err := job.cron.AddFunc(cfg.Schedule, job.run); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", cfg.Schedule, err)
	}
	return job, nil
}

func (j *backupJob) Start() {
	j.log.WithField("dir", j.dir).Info("backup job scheduled")
	j.cron.Start()
}

func (j *backupJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *backupJob) run() {
	dst := filepath.Join(j.dir, time.Now().UTC().Format("20060102T150405"))

	if err := j.store.BackupTo(dst); err != nil {
		metrics.RecordBackupRun(false)
		j.log.WithError(err).Warn("backup failed")
		return
	}
	metrics.RecordBackupRun(true)
	j.log.WithField("dst", dst).Info("backup completed")
}
