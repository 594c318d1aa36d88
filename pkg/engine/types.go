// Package engine executes SQL against a Dremio-style analytical engine
// through its asynchronous REST job API.
//
// A query run authenticates when no token is held, submits the statement,
// polls the resulting job until it reaches a terminal state and then pages
// through the job results.
//
//nolint:revive // package contains related DTO types
package engine

import "time"

// JobState is the lifecycle state reported by the engine for a job.
type JobState string

// Job states reported by the engine. Only COMPLETED, FAILED and CANCELED
// are terminal; every other value is treated as still running.
const (
	JobNotSubmitted      JobState = "NOT_SUBMITTED"
	JobStarting          JobState = "STARTING"
	JobRunning           JobState = "RUNNING"
	JobEnqueued          JobState = "ENQUEUED"
	JobPlanning          JobState = "PLANNING"
	JobPending           JobState = "PENDING"
	JobMetadataRetrieval JobState = "METADATA_RETRIEVAL"
	JobQueued            JobState = "QUEUED"
	JobEngineStart       JobState = "ENGINE_START"
	JobExecutionPlanning JobState = "EXECUTION_PLANNING"
	JobCompleted         JobState = "COMPLETED"
	JobCanceled          JobState = "CANCELED"
	JobFailed            JobState = "FAILED"
)

// Terminal reports whether no further transitions are expected.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobCanceled || s == JobFailed
}

// Job is an engine-side unit of SQL execution.
type Job struct {
	ID                 string   `json:"id"`
	State              JobState `json:"jobState"`
	RowCount           int      `json:"rowCount"`
	ErrorMessage       string   `json:"errorMessage,omitempty"`
	CancellationReason string   `json:"cancellationReason,omitempty"`
}

// Column describes one result column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Row maps column name to value.
type Row map[string]any

// ResultSet is the complete, ordered output of a completed job.
type ResultSet struct {
	JobID    string   `json:"job_id"`
	Columns  []Column `json:"columns"`
	Rows     []Row    `json:"rows"`
	RowCount int      `json:"row_count"`
}

// ColumnNames returns the column names in result order.
func (r *ResultSet) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Values returns the rows as positional value slices in column order.
func (r *ResultSet) Values() [][]any {
	out := make([][]any, len(r.Rows))
	for i, row := range r.Rows {
		vals := make([]any, len(r.Columns))
		for j, c := range r.Columns {
			vals[j] = row[c.Name]
		}
		out[i] = vals
	}
	return out
}

// Credentials authenticate against the engine login endpoint.
type Credentials struct {
	Username string
	Password string
}

// Backoff strategies for the job poller.
const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// Config configures the engine client.
type Config struct {
	Host            string
	LoginPath       string
	APIBase         string
	Credentials     Credentials
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	PollBackoff     string
	MaxWait         time.Duration
	PageSize        int
}

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultLoginPath       = "/apiv2/login"
	DefaultAPIBase         = "/api/v3"
	DefaultRequestTimeout  = 10 * time.Second
	DefaultPollInterval    = time.Second
	DefaultMaxPollInterval = 10 * time.Second
	DefaultMaxWait         = 5 * time.Minute
	DefaultPageSize        = 500
)

func (c *Config) applyDefaults() {
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPollInterval == 0 {
		c.MaxPollInterval = DefaultMaxPollInterval
	}
	if c.PollBackoff == "" {
		c.PollBackoff = BackoffConstant
	}
	if c.MaxWait == 0 {
		c.MaxWait = DefaultMaxWait
	}
	if c.PageSize <= 0 || c.PageSize > DefaultPageSize {
		c.PageSize = DefaultPageSize
	}
}
