package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

type healthcheckOptions struct {
	url        string
	ready      bool
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	format     string
}

// HealthResponse matches the body of /healthz and /readyz.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheckResult is one probe of a health endpoint.
type HealthCheckResult struct {
	URL        string          `json:"url"`
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	IsHealthy  bool            `json:"healthy"`
	LatencyMs  int64           `json:"latency_ms"`
	RetryCount int             `json:"retry_count,omitempty"`
	Error      string          `json:"error,omitempty"`
	Response   *HealthResponse `json:"response,omitempty"`
}

func newHealthcheckCommand() *cobra.Command {
	opts := &healthcheckOptions{}

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling /healthz, or /readyz with --ready.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the server is healthy, non-zero otherwise.

Exit codes:
  0 - Server is healthy
  1 - Server is unhealthy or unreachable`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := opts.url
			if url == "" {
				url = defaultHealthURL(opts.ready)
			}

			result := performHealthCheckWithRetries(cmd.Context(), url, *opts)
			if err := writeHealthResult(cmd.OutOrStdout(), result, opts.format); err != nil {
				return err
			}
			if !result.IsHealthy {
				return fmt.Errorf("unhealthy: %s", result.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/healthz)")
	cmd.Flags().BoolVar(&opts.ready, "ready", false, "probe readiness (/readyz) instead of liveness")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "timeout per attempt")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "retries after a failed attempt")
	cmd.Flags().DurationVar(&opts.retryDelay, "retry-delay", 2*time.Second, "delay between retries")
	cmd.Flags().StringVar(&opts.format, "format", "simple", "output format (simple, json)")
	return cmd
}

func defaultHealthURL(ready bool) string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	path := "/healthz"
	if ready {
		path = "/readyz"
	}
	return fmt.Sprintf("http://localhost:%s%s", port, path)
}

func performHealthCheck(ctx context.Context, url string, timeout time.Duration) HealthCheckResult {
	result := HealthCheckResult{URL: url, Status: "unreachable"}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = resp.Body.Close() }()
	result.StatusCode = resp.StatusCode

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Status = "invalid_response"
		result.Error = fmt.Sprintf("parse response: %v", err)
		return result
	}
	result.Response = &body
	result.Status = body.Status
	result.IsHealthy = resp.StatusCode == http.StatusOK && body.Status == "ok"
	return result
}

func performHealthCheckWithRetries(ctx context.Context, url string, opts healthcheckOptions) HealthCheckResult {
	var result HealthCheckResult
	for attempt := 0; ; attempt++ {
		result = performHealthCheck(ctx, url, opts.timeout)
		result.RetryCount = attempt
		if result.IsHealthy || attempt >= opts.retries {
			return result
		}
		select {
		case <-time.After(opts.retryDelay):
		case <-ctx.Done():
			return result
		}
	}
}

func writeHealthResult(out io.Writer, result HealthCheckResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "simple", "":
		fmt.Fprintf(out, "%s %s (%d ms)\n", result.URL, result.Status, result.LatencyMs)
		if result.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", result.Error)
		}
		if result.Response != nil {
			names := make([]string, 0, len(result.Response.Checks))
			for name := range result.Response.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				check := result.Response.Checks[name]
				fmt.Fprintf(out, "  %s: %s", name, check.Status)
				if check.Message != "" {
					fmt.Fprintf(out, " (%s)", check.Message)
				}
				fmt.Fprintln(out)
			}
		}
		return nil
	default:
		return errors.New("unknown format " + format + ", want simple or json")
	}
}
