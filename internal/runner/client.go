package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"productload/internal/scenario"
)

// maxFailureBody bounds how much of a failed response is kept.
const maxFailureBody = 512

// Recorder receives the outcome of every request.
type Recorder interface {
	Record(res ExperimentResult)
}

// StatusError is reported for responses outside 2xx/3xx.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}

// HTTPClient is one user's scenario.Client. It sends requests relative to
// Host and hands every outcome to Recorder; nothing is returned to the task.
type HTTPClient struct {
	Host     string
	HTTP     *http.Client
	Headers  map[string]string
	UserID   string
	Recorder Recorder
	Inflight *int64
}

var _ scenario.Client = (*HTTPClient)(nil)

func (c *HTTPClient) Do(ctx context.Context, req scenario.Request) {
	name := req.Name
	if name == "" {
		name = req.Path
	}
	res := ExperimentResult{
		TimeStamp: time.Now(),
		Method:    req.Method,
		Name:      name,
		URL:       strings.TrimRight(c.Host, "/") + req.Path,
		UserID:    c.UserID,
	}

	if c.Inflight != nil {
		atomic.AddInt64(c.Inflight, 1)
		defer atomic.AddInt64(c.Inflight, -1)
	}

	c.send(ctx, req, &res)

	if res.Err != nil {
		res.Error = failureMessage(res.Err)
	}
	c.Recorder.Record(res)
}

// failureMessage drops the URL from transport errors so failures group by
// request name rather than by product id.
func failureMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}

func (c *HTTPClient) send(ctx context.Context, req scenario.Request, res *ExperimentResult) {
	var body io.Reader
	if req.JSON != nil {
		b, err := json.Marshal(req.JSON)
		if err != nil {
			res.Err = fmt.Errorf("encode body: %w", err)
			return
		}
		body = bytes.NewReader(b)
	}

	// stopping a user must not abort a request already on the wire
	httpReq, err := http.NewRequestWithContext(context.WithoutCancel(ctx), req.Method, res.URL, body)
	if err != nil {
		res.Err = fmt.Errorf("build request: %w", err)
		return
	}
	for k, v := range c.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.JSON != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		res.Latency = time.Since(start)
		res.Err = err
		return
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxFailureBody))
		res.ResponseBody = string(b)
		n, _ := io.Copy(io.Discard, resp.Body)
		res.Bytes = int64(len(b)) + n
		res.Err = &StatusError{Code: resp.StatusCode}
	} else {
		res.Bytes, _ = io.Copy(io.Discard, resp.Body)
		res.Success = true
	}
	res.Latency = time.Since(start)
}
