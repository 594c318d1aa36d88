package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxErrorBody bounds how much of a failed response body is read for detail.
const maxErrorBody = 64 << 10

// statusError is a non-2xx engine response.
type statusError struct {
	Status int
	Detail string
}

func (e *statusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("engine returned status %d", e.Status)
	}
	return fmt.Sprintf("engine returned status %d: %s", e.Status, e.Detail)
}

// Client is the REST transport to the engine. Each request is bounded by the
// configured request timeout.
type Client struct {
	baseURL   string
	loginPath string
	apiBase   string
	http      *http.Client
}

func newClient(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	clone := *hc
	clone.Timeout = cfg.RequestTimeout
	return &Client{
		baseURL:   strings.TrimRight(cfg.Host, "/"),
		loginPath: cfg.LoginPath,
		apiBase:   strings.TrimRight(cfg.APIBase, "/"),
		http:      &clone,
	}
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

type sqlResponse struct {
	ID string `json:"id"`
}

// ResultsPage is one page of GET /job/{id}/results.
type ResultsPage struct {
	RowCount int               `json:"rowCount"`
	Schema   []SchemaField     `json:"schema"`
	Rows     []json.RawMessage `json:"rows"`
}

// SchemaField is one column of a results page schema.
type SchemaField struct {
	Name string `json:"name"`
	Type struct {
		Name string `json:"name"`
	} `json:"type"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, c.loginPath, "", loginRequest{
		UserName: creds.Username,
		Password: creds.Password,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("login response contained no token")
	}
	return out.Token, nil
}

// SubmitSQL submits a statement and returns the job id.
func (c *Client) SubmitSQL(ctx context.Context, token, sql string) (string, error) {
	var out sqlResponse
	if err := c.do(ctx, http.MethodPost, c.apiBase+"/sql", token, sqlRequest{SQL: sql}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("submission response contained no job id")
	}
	return out.ID, nil
}

// JobStatus fetches the current state of a job.
func (c *Client) JobStatus(ctx context.Context, token, jobID string) (*Job, error) {
	var out Job
	if err := c.do(ctx, http.MethodGet, c.apiBase+"/job/"+url.PathEscape(jobID), token, nil, &out); err != nil {
		return nil, err
	}
	out.ID = jobID
	return &out, nil
}

// JobResults fetches one page of a completed job's results.
func (c *Client) JobResults(ctx context.Context, token, jobID string, offset, limit int) (*ResultsPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	path := c.apiBase + "/job/" + url.PathEscape(jobID) + "/results?" + q.Encode()

	var out ResultsPage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{Status: resp.StatusCode, Detail: readErrorDetail(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// readErrorDetail extracts the engine's errorMessage from a failure body,
// falling back to the trimmed raw body.
func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		ErrorMessage string `json:"errorMessage"`
		MoreInfo     string `json:"moreInfo"`
	}
	if json.Unmarshal(data, &body) == nil && body.ErrorMessage != "" {
		if body.MoreInfo != "" {
			return body.ErrorMessage + " (" + body.MoreInfo + ")"
		}
		return body.ErrorMessage
	}
	return strings.TrimSpace(string(data))
}

// wrapErr converts a transport error into an *Error of the given kind,
// lifting status and engine detail when present.
func wrapErr(kind Kind, op, jobID string, err error) *Error {
	e := &Error{Kind: kind, Op: op, JobID: jobID}
	var se *statusError
	if errors.As(err, &se) {
		e.Status = se.Status
		e.Detail = se.Detail
		return e
	}
	e.Err = err
	return e
}
