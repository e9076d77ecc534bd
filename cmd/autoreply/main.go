// Package main implements the autoreply CLI for manual operations against
// the autoreplyd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the autoreplyd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autoreply",
	Short: "CLI for autoreplyd HTTP server operations",
	Long: `autoreply is a command-line interface for interacting with the autoreplyd
HTTP server. It resolves requests, submits feedback, and inspects engine state.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8750", "autoreplyd server URL")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(healthCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <query...>",
	Short: "Resolve a request against the learned stores",
	Long: `Resolve a request against the learned pathways and response cache, with
model fallback when configured.

Examples:
  # Resolve a request
  autoreply resolve how do I rename a git branch

  # Use a different server
  autoreply resolve --server http://localhost:9100 deploy checklist`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

var (
	feedbackVerdict string
	feedbackSession string
	feedbackScore   float64
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <query...>",
	Short: "Submit an outcome signal for a served answer",
	Long: `Submit feedback about a previously served answer. Positive feedback
raises the entry's confidence; negative feedback lowers it.

Examples:
  # Confirm an answer worked
  autoreply feedback --verdict positive --session term-42 how do I rename a git branch

  # Report a wrong answer
  autoreply feedback --verdict negative how do I rename a git branch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFeedback,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show engine statistics",
	RunE:  runStats,
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run a consolidation pass now",
	RunE:  runConsolidate,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check autoreplyd server health",
	RunE:  runHealth,
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackVerdict, "verdict", "positive", "feedback verdict: positive, negative, or neutral")
	feedbackCmd.Flags().StringVar(&feedbackSession, "session", "", "session identifier for confirmation tracking")
	feedbackCmd.Flags().Float64Var(&feedbackScore, "score", 1.0, "signal weight in [0, 1]")
}

// ResolveRequest matches internal/httpapi ResolveRequest.
type ResolveRequest struct {
	Query string `json:"query"`
}

// ResolveResponse matches internal/engine Resolution.
type ResolveResponse struct {
	Answer  string `json:"answer"`
	Source  string `json:"source"`
	EntryID string `json:"entry_id,omitempty"`
	Tier    string `json:"tier,omitempty"`
}

// FeedbackRequest matches internal/feedback Event.
type FeedbackRequest struct {
	Query     string  `json:"query"`
	Verdict   string  `json:"verdict"`
	Score     float64 `json:"score,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
	Source    string  `json:"source,omitempty"`
}

// HealthResponse matches internal/httpapi HealthResponse.
type HealthResponse struct {
	Status string `json:"status"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	var resp ResolveResponse
	err := postJSON("/api/v1/resolve", ResolveRequest{Query: strings.Join(args, " ")}, &resp)
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	fmt.Fprintf(os.Stderr, "[autoreply] source=%s", resp.Source)
	if resp.Tier != "" {
		fmt.Fprintf(os.Stderr, " tier=%s", resp.Tier)
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

func runFeedback(cmd *cobra.Command, args []string) error {
	req := FeedbackRequest{
		Query:     strings.Join(args, " "),
		Verdict:   feedbackVerdict,
		Score:     feedbackScore,
		SessionID: feedbackSession,
		Source:    "cli",
	}

	var outcome map[string]any
	if err := postJSON("/api/v1/feedback", req, &outcome); err != nil {
		return err
	}
	return printJSON(outcome)
}

func runStats(cmd *cobra.Command, args []string) error {
	var stats map[string]any
	if err := getJSON("/api/v1/stats", &stats); err != nil {
		return err
	}
	return printJSON(stats)
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	var report map[string]any
	if err := postJSON("/api/v1/consolidate", nil, &report); err != nil {
		return err
	}
	return printJSON(report)
}

func runHealth(cmd *cobra.Command, args []string) error {
	var health HealthResponse
	if err := getJSON("/health", &health); err != nil {
		return err
	}
	fmt.Printf("Server Status: %s\n", health.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}

func postJSON(path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := serverURL + path
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(req, out)
}

func getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, serverURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return do(req, out)
}

func do(req *http.Request, out any) error {
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
