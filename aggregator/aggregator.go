// Package aggregator fans one session's refresh out to every configured
// feed endpoint concurrently and reports per-source success or failure.
// Failures are data, not faults: one dead feed never aborts its siblings,
// and retry policy belongs to the stream loop, not here.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// FetchError wraps a transport-level failure for a single source.
type FetchError struct {
	Source string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.Source, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// RejectedError records a non-success HTTP status for a single source.
type RejectedError struct {
	Source     string
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("fetch %s rejected: status %d", e.Source, e.StatusCode)
}

// Result is the outcome for one source. Exactly one of Data or Err is
// meaningful; callers branch per source.
type Result struct {
	Source string
	Data   json.RawMessage
	Err    error
}

func (r Result) OK() bool { return r.Err == nil }

// Aggregator issues the per-source fetches for a session refresh.
type Aggregator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Aggregator {
	return &Aggregator{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchAll fetches every source concurrently and returns one Result per
// source name. Every key of sources appears in the output exactly once.
func (a *Aggregator) FetchAll(ctx context.Context, sessionID string, sources map[string]string) map[string]Result {
	results := make(map[string]Result, len(sources))

	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, endpoint := range sources {
		wg.Add(1)
		go func(name, endpoint string) {
			defer wg.Done()
			res := a.fetchOne(ctx, name, endpoint, sessionID)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, endpoint)
	}

	wg.Wait()
	return results
}

func (a *Aggregator) fetchOne(ctx context.Context, name, endpoint, sessionID string) Result {
	url := fmt.Sprintf("%s%s?GameID=%s", a.baseURL, endpoint, sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Source: name, Err: &FetchError{Source: name, Cause: err}}
	}
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Result{Source: name, Err: &FetchError{Source: name, Cause: err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Source: name, Err: &RejectedError{Source: name, StatusCode: resp.StatusCode}}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Source: name, Err: &FetchError{Source: name, Cause: err}}
	}

	return Result{Source: name, Data: body}
}
