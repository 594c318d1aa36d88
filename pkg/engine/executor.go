package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/txn2/dremio-simplejson/pkg/audit"
)

// Options configures optional executor collaborators.
type Options struct {
	// HTTPClient is used for engine requests (optional, defaults to a new client).
	// Its Timeout is replaced by the configured request timeout.
	HTTPClient *http.Client

	// AuditLogger receives one event per run (optional, defaults to a no-op).
	AuditLogger audit.Logger
}

// Executor runs SQL statements against the engine. It is the single entry
// point used by request handlers and is safe for concurrent use.
type Executor struct {
	client   *Client
	tokens   *TokenStore
	auth     *Authenticator
	poller   *Poller
	audit    audit.Logger
	pageSize int
}

// New creates an executor for cfg.
func New(cfg Config, opts Options) (*Executor, error) {
	if cfg.Host == "" {
		return nil, errors.New("engine host is required")
	}
	cfg.applyDefaults()

	client := newClient(cfg, opts.HTTPClient)
	tokens := NewTokenStore()
	auditLogger := opts.AuditLogger
	if auditLogger == nil {
		auditLogger = audit.NoopLogger{}
	}

	auth := NewAuthenticator(client, cfg.Credentials, tokens)
	return &Executor{
		client:   client,
		tokens:   tokens,
		auth:     auth,
		poller:   NewPoller(client, auth, cfg),
		audit:    auditLogger,
		pageSize: cfg.PageSize,
	}, nil
}

// Tokens returns the executor's token store.
func (e *Executor) Tokens() *TokenStore {
	return e.tokens
}

// Authenticate logs in eagerly, replacing any stored token.
func (e *Executor) Authenticate(ctx context.Context) error {
	_, err := e.auth.Authenticate(ctx)
	return err
}

// Run executes sql and returns the complete result set. It either returns
// every row the engine reports or an error; never a partial result.
func (e *Executor) Run(ctx context.Context, sql string) (*ResultSet, error) {
	start := time.Now()
	rs, jobID, err := e.run(ctx, sql)
	e.record(ctx, sql, jobID, rs, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (e *Executor) run(ctx context.Context, sql string) (*ResultSet, string, error) {
	if _, ok := e.tokens.Get(); !ok {
		if _, err := e.auth.Authenticate(ctx); err != nil {
			return nil, "", err
		}
	}

	slog.Debug("submitting engine query", "sql", sql)
	var jobID string
	err := e.auth.Do(ctx, func(token string) error {
		id, err := e.client.SubmitSQL(ctx, token, sql)
		if err != nil {
			return wrapErr(KindSubmission, "submit", "", err)
		}
		jobID = id
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	slog.Debug("engine job created", "job_id", jobID)

	if _, err := e.poller.Wait(ctx, jobID); err != nil {
		return nil, jobID, err
	}

	rs, err := e.fetchResults(ctx, jobID)
	if err != nil {
		return nil, jobID, err
	}
	return rs, jobID, nil
}

// fetchResults pages through a completed job's results until the reported
// row count has been collected.
func (e *Executor) fetchResults(ctx context.Context, jobID string) (*ResultSet, error) {
	rs := &ResultSet{JobID: jobID, Rows: []Row{}}
	total := -1

	for offset := 0; total < 0 || offset < total; {
		var page *ResultsPage
		err := e.auth.Do(ctx, func(token string) error {
			p, err := e.client.JobResults(ctx, token, jobID, offset, e.pageSize)
			if err != nil {
				return wrapErr(KindResultFetch, "fetch results", jobID, err)
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, err
		}

		if total < 0 {
			total = page.RowCount
			rs.Columns = columnsFromSchema(page.Schema)
		}
		if total > 0 && len(page.Rows) == 0 {
			return nil, &Error{
				Kind:   KindResultFetch,
				Op:     "fetch results",
				JobID:  jobID,
				Detail: fmt.Sprintf("result set truncated at %d of %d rows", offset, total),
			}
		}

		for _, raw := range page.Rows {
			row, err := decodeRow(raw)
			if err != nil {
				return nil, &Error{Kind: KindResultFetch, Op: "fetch results", JobID: jobID, Err: err}
			}
			if len(rs.Columns) == 0 {
				rs.Columns = columnsFromRow(raw)
			}
			rs.Rows = append(rs.Rows, row)
		}
		offset += len(page.Rows)
	}

	if len(rs.Rows) > total {
		rs.Rows = rs.Rows[:total]
	}
	rs.RowCount = len(rs.Rows)
	if rs.Columns == nil {
		rs.Columns = []Column{}
	}
	return rs, nil
}

func (e *Executor) record(ctx context.Context, sql, jobID string, rs *ResultSet, err error, elapsed time.Duration) {
	event := audit.NewEvent(sql).WithRequest(audit.GetRequestInfo(ctx))
	rowCount := 0
	if rs != nil {
		rowCount = rs.RowCount
	}
	event.WithJob(jobID, rowCount)
	if err != nil {
		event.WithResult(false, string(KindOf(err)), err.Error(), elapsed)
	} else {
		event.WithResult(true, "", "", elapsed)
	}

	if logErr := e.audit.Log(context.WithoutCancel(ctx), *event); logErr != nil {
		slog.Warn("failed to record query audit event", "error", logErr)
	}
}

func columnsFromSchema(fields []SchemaField) []Column {
	if len(fields) == 0 {
		return nil
	}
	cols := make([]Column, len(fields))
	for i, f := range fields {
		cols[i] = Column{Name: f.Name, Type: f.Type.Name}
	}
	return cols
}

// columnsFromRow derives column order from the key order of a JSON object.
func columnsFromRow(raw json.RawMessage) []Column {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var cols []Column
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return cols
		}
		key, ok := tok.(string)
		if !ok {
			return cols
		}
		cols = append(cols, Column{Name: key})
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return cols
		}
	}
	return cols
}

func decodeRow(raw json.RawMessage) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var row Row
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("decoding result row: %w", err)
	}
	return row, nil
}
