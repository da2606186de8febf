package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONB represents a JSON field that can be stored in a JSONB (Postgres) or
// TEXT (SQLite) column.
type JSONB map[string]interface{}

// Value implements driver.Valuer interface for database storage
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface for database retrieval
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}

	return json.Unmarshal(bytes, j)
}

// JobStatus enumerates the states of the QueuedJob lifecycle.
type JobStatus string

const (
	StatusQueued         JobStatus = "queued"
	StatusPulled         JobStatus = "pulled"
	StatusPreprocessing  JobStatus = "preprocessing"
	StatusRunning        JobStatus = "running"
	StatusPostprocessing JobStatus = "postprocessing"
	StatusFinished       JobStatus = "finished"
	StatusError          JobStatus = "error"
)

// IsTerminal reports whether a status is final and can never transition again.
func (s JobStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusError
}

// Environment names the class of compute a job may run on.
type Environment string

const (
	EnvironmentLocal Environment = "local"
	EnvironmentCloud Environment = "cloud"
	EnvironmentAny   Environment = "any"
)

// MarshalJSON serializes EnvironmentAny (and the unset zero value) as JSON
// null, matching the wire contract the original job-spec envelope uses.
func (e Environment) MarshalJSON() ([]byte, error) {
	if e == EnvironmentAny || e == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(e))
}

// UnmarshalJSON treats a JSON null the same as the any environment.
func (e *Environment) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = EnvironmentAny
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*e = Environment(s)
	return nil
}

// AppSpec describes the application and command line to execute.
type AppSpec struct {
	Cmd     []string          `json:"cmd"`
	EnvVars map[string]string `json:"env_vars,omitempty"`
}

// HandlerSpec describes the runnable image and its input/output manifests.
type HandlerSpec struct {
	ImageURL        string            `json:"image_url"`
	ImageName       string            `json:"image_name,omitempty"`
	ImageVersion    string            `json:"image_version,omitempty"`
	Entrypoint      string            `json:"entrypoint,omitempty"`
	BatchDefinition string            `json:"batch_definition,omitempty"`
	FilesDown       map[string]string `json:"files_down,omitempty"` // local path -> source object store URI
	FilesUp         map[string]string `json:"files_up,omitempty"`   // output|log|artifact -> upload destination local path
}

// MetaSpec carries submitter-side bookkeeping that the broker passes through
// unmodified.
type MetaSpec struct {
	JobID          string    `json:"job_id"`
	DateCreated    time.Time `json:"date_created"`
	SubmitterName  string    `json:"submitter_name,omitempty"`
	ExtraMetadata  JSONB     `json:"extra_metadata,omitempty"`
}

// HardwareSpec restates the resource demands carried on the envelope, kept
// alongside the job for reference after it has been dequeued.
type HardwareSpec struct {
	CPUCores int     `json:"cpu_cores"`
	Memory   float64 `json:"memory"`
	GPUMem   float64 `json:"gpu_mem,omitempty"`
	GPUModel string  `json:"gpu_model,omitempty"`
	GPUArchi string  `json:"gpu_archi,omitempty"`
}

// JobSpec is the opaque payload a worker needs to execute a job.
type JobSpec struct {
	App      AppSpec      `json:"app"`
	Handler  HandlerSpec  `json:"handler"`
	Meta     MetaSpec     `json:"meta"`
	Hardware HardwareSpec `json:"hardware"`
}

// Value/Scan let JobSpec be stored directly as a JSONB/TEXT column.
func (j JobSpec) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JobSpec) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JobSpec", value)
	}
	return json.Unmarshal(b, j)
}

// WorkerList is the append-only, ';'-delimited history of workers that have
// pulled a job. It is stored as a single TEXT column so that both Postgres
// and SQLite backends can share one schema; a dedicated array column would
// be preferable on a database that supports one, see the no-retry-same-worker
// design note.
type WorkerList []string

func (w WorkerList) Value() (driver.Value, error) {
	return strings.Join([]string(w), ";"), nil
}

func (w *WorkerList) Scan(value interface{}) error {
	if value == nil {
		*w = nil
		return nil
	}
	var s string
	switch v := value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("cannot scan %T into WorkerList", value)
	}
	if s == "" {
		*w = nil
		return nil
	}
	*w = strings.Split(s, ";")
	return nil
}

// Contains reports whether worker has already appeared in the history as a
// whole ";"-delimited entry (not a substring of one), the same match the
// selection algorithm relies on to avoid redispatching a job to a worker
// that already failed it.
func (w WorkerList) Contains(worker string) bool {
	return strings.Contains(";"+strings.Join([]string(w), ";")+";", ";"+worker+";")
}

// QueuedJob is the durable row backing a single unit of work.
type QueuedJob struct {
	ID                string     `gorm:"primaryKey;type:text" json:"id"`
	CreationTimestamp time.Time  `gorm:"autoCreateTime:false;not null" json:"creation_timestamp"`
	LastUpdated       time.Time  `gorm:"autoUpdateTime:false;not null" json:"last_updated"`
	Status            JobStatus  `gorm:"type:text;not null;default:'queued';index:idx_queued_jobs_status" json:"status"`
	NumRetries        int        `gorm:"not null;default:0" json:"num_retries"`

	Job JobSpec `gorm:"type:text;not null" json:"job"`

	PathsUpload map[string]string `gorm:"serializer:json" json:"paths_upload,omitempty"`

	Environment Environment `gorm:"type:text;not null;index:idx_queued_jobs_environment" json:"environment"`

	// CPUCores, Memory and GPUMem are minimum demands; nil means "no
	// constraint" per §3's invariant 6, so they are nullable columns rather
	// than zero-valued ones.
	CPUCores *int     `gorm:"type:integer" json:"cpu_cores,omitempty"`
	Memory   *float64 `gorm:"type:real" json:"memory,omitempty"`
	GPUMem   *float64 `gorm:"type:real" json:"gpu_mem,omitempty"`
	GPUModel *string  `gorm:"type:text" json:"gpu_model,omitempty"`
	GPUArchi *string  `gorm:"type:text" json:"gpu_archi,omitempty"`

	Group    *string `gorm:"type:text;index:idx_queued_jobs_group" json:"group,omitempty"`
	Priority int     `gorm:"not null;default:5" json:"priority"`

	Workers WorkerList `gorm:"type:text" json:"workers"`

	TimeoutSeconds int `gorm:"not null;default:300" json:"timeout_seconds"`
}

// TableName fixes the table name so goose migrations and GORM agree.
func (QueuedJob) TableName() string {
	return "queued_jobs"
}

// BeforeCreate assigns the queue-side id and timestamps. IDs are generated
// in application code rather than via a DB-side default so the same schema
// works unmodified against both the Postgres and SQLite backends.
func (j *QueuedJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if j.CreationTimestamp.IsZero() {
		j.CreationTimestamp = now
	}
	j.LastUpdated = now
	return nil
}

// SubmittedJob is the envelope the Submit API posts to the Worker API's
// internal "/_jobs" endpoint to enqueue new work.
type SubmittedJob struct {
	Job         JobSpec           `json:"job"`
	Environment Environment       `json:"environment"`
	Group       *string           `json:"group,omitempty"`
	Priority    int               `json:"priority"`
	PathsUpload map[string]string `json:"paths_upload,omitempty"`
}

// JobFilter is the pull-side predicate a worker sends when asking for work.
type JobFilter struct {
	Environment Environment `json:"environment"`
	OlderThan   int         `json:"older_than"`
	CPUCores    int         `json:"cpu_cores"`
	Memory      float64     `json:"memory"`
	GPUMem      float64     `json:"gpu_mem"`
	GPUModel    *string     `json:"gpu_model,omitempty"`
	GPUArchi    *string     `json:"gpu_archi,omitempty"`
	Groups      []string    `json:"groups,omitempty"`
}

// Normalize fills in the filter's documented defaults.
func (f *JobFilter) Normalize() {
	if f.CPUCores == 0 {
		f.CPUCores = 1
	}
}
