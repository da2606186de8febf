package queue_store

import (
	"time"

	"github.com/cloudforge/jobbroker/internal/store/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// applyFilter restricts q to the rows a worker presenting filter is eligible
// to receive, per §4.2 steps 2-5. groupOnly additionally restricts to the
// worker's own affinity groups (step 1's "own_group" pass); when false it
// is the "all" pass.
func applyFilter(q *gorm.DB, worker string, filter models.JobFilter, groupOnly bool, noRetrySameWorker bool) *gorm.DB {
	q = q.Where("status = ?", models.StatusQueued)

	olderThanCutoff := time.Now().UTC().Add(-time.Duration(filter.OlderThan) * time.Second)
	q = q.Where(
		"(environment = ? OR (environment = ? AND creation_timestamp < ?))",
		filter.Environment, models.EnvironmentAny, olderThanCutoff,
	)

	q = q.Where("cpu_cores IS NULL OR cpu_cores <= ?", filter.CPUCores)
	q = q.Where("memory IS NULL OR memory <= ?", filter.Memory)
	q = q.Where("gpu_mem IS NULL OR gpu_mem <= ?", filter.GPUMem)

	if filter.GPUModel != nil {
		q = q.Where("gpu_model IS NULL OR gpu_model = ?", *filter.GPUModel)
	} else {
		q = q.Where("gpu_model IS NULL")
	}
	if filter.GPUArchi != nil {
		q = q.Where("gpu_archi IS NULL OR gpu_archi = ?", *filter.GPUArchi)
	} else {
		q = q.Where("gpu_archi IS NULL")
	}

	if groupOnly {
		if len(filter.Groups) == 0 {
			// No groups claimed: the own-group pass matches nothing, the
			// caller falls through to the "all" pass.
			q = q.Where("1 = 0")
		} else {
			q = q.Where("\"group\" IN ?", filter.Groups)
		}
	}

	if noRetrySameWorker && worker != "" {
		// Substring match on the ';'-delimited worker history, per the
		// spec's documented trade-off (§4.2 edge cases, §9 open question b).
		// Bounded with the ';' delimiter on both sides (and start/end of
		// string) so "host1" doesn't spuriously match a stored "host12".
		q = q.Where(
			"workers IS NULL OR NOT (workers = ? OR workers LIKE ? OR workers LIKE ? OR workers LIKE ?)",
			worker, worker+";%", "%;"+worker, "%;"+worker+";%",
		)
	}

	return q.Order("priority DESC, creation_timestamp ASC")
}

// selectCandidate runs the two-pass selection algorithm (own-group first,
// then everything) inside the transaction tx, locking the winning row for
// update when lockForUpdate is true. Returns gorm.ErrRecordNotFound when
// nothing is eligible.
func selectCandidate(tx *gorm.DB, worker string, filter models.JobFilter, lockForUpdate bool, noRetrySameWorker bool) (*models.QueuedJob, error) {
	var job models.QueuedJob

	newQuery := func() *gorm.DB {
		q := tx.Model(&models.QueuedJob{})
		// Postgres takes a real row lock here; SQLite has no row-level
		// locking so "FOR UPDATE" is skipped and withLock's process mutex
		// does the serializing instead.
		if lockForUpdate && !isSQLite {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return q
	}

	if len(filter.Groups) > 0 {
		ownGroupQuery := applyFilter(newQuery(), worker, filter, true, noRetrySameWorker)
		err := ownGroupQuery.First(&job).Error
		if err == nil {
			return &job, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	allQuery := applyFilter(newQuery(), worker, filter, false, noRetrySameWorker)
	if err := allQuery.First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}
