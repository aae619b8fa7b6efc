package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cstopics/cstopics/api"
	"github.com/cstopics/cstopics/sim/scenario"
)

// Client sends runs to a cstopics server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: time.Minute},
	}
}

// Run posts one run and returns the server's outcome. Transport failures
// are returned as errors; run failures come back inside the Outcome.
func (c *Client) Run(ctx context.Context, run scenario.RunSpec, seed int64) (scenario.Outcome, error) {
	var out scenario.Outcome
	body, err := json.Marshal(run)
	if err != nil {
		return out, fmt.Errorf("marshal run: %w", err)
	}
	url := fmt.Sprintf("%s/api/run?seed=%d", c.baseURL, seed)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("HTTP error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return out, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("JSON parse error: %w", err)
	}
	return out, nil
}

// Play streams a run over the playback websocket, calling onEvent for each
// event, and returns the final outcome.
func (c *Client) Play(ctx context.Context, run scenario.RunSpec, seed int64, interval time.Duration, onEvent func(api.PlayMessage)) (scenario.Outcome, error) {
	var out scenario.Outcome
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/play"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return out, fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	req := api.PlayRequest{Run: run, IntervalMS: int(interval / time.Millisecond), Seed: &seed}
	if err := conn.WriteJSON(req); err != nil {
		return out, fmt.Errorf("send play request: %w", err)
	}
	for {
		var msg api.PlayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return out, fmt.Errorf("read playback: %w", err)
		}
		switch msg.Type {
		case api.MessageEvent:
			if onEvent != nil {
				onEvent(msg)
			}
		case api.MessageResult, api.MessageDone, api.MessageError:
			if msg.Outcome != nil {
				out = *msg.Outcome
			} else {
				out.Error = msg.Error
			}
			return out, nil
		}
	}
}

// Collector gathers outcomes from concurrent runs (goroutine-safe).
type Collector struct {
	mu       sync.Mutex
	outcomes map[int]scenario.Outcome
}

// Record stores the outcome of the run at index i.
func (c *Collector) Record(i int, out scenario.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[int]scenario.Outcome)
	}
	c.outcomes[i] = out
}

// Outcomes returns the recorded outcomes ordered by run index.
func (c *Collector) Outcomes(n int) []scenario.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]scenario.Outcome, 0, n)
	for i := 0; i < n; i++ {
		if o, ok := c.outcomes[i]; ok {
			result = append(result, o)
		}
	}
	return result
}

var (
	remoteURL      string
	remotePath     string
	remoteParallel int
	remotePlay     bool
	remoteInterval time.Duration
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Send the runs of a scenario file to a running server",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := scenario.Load(remotePath)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		if cmd.Flags().Changed("seed") {
			spec.Seed = seed
		}
		client := NewClient(remoteURL)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if remotePlay {
			for _, run := range spec.Runs {
				out, err := client.Play(ctx, run, spec.Seed, remoteInterval, func(m api.PlayMessage) {
					fmt.Printf("[%s %d/%d] %v\n", run.Name, m.Index+1, m.Total, describeEvent(m.Event))
				})
				if err != nil {
					logrus.Fatalf("Playback of %s failed: %v", run.Name, err)
				}
				if !out.OK() {
					logrus.Errorf("%s: %s", run.Name, out.Error)
				}
			}
			return
		}

		collector := &Collector{}
		sem := make(chan struct{}, max(remoteParallel, 1))
		var wg sync.WaitGroup
		for i, run := range spec.Runs {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, run scenario.RunSpec) {
				defer wg.Done()
				defer func() { <-sem }()
				out, err := client.Run(ctx, run, spec.Seed)
				if err != nil {
					out = scenario.Reject(run, err)
				}
				collector.Record(i, out)
			}(i, run)
		}
		wg.Wait()

		outcomes := collector.Outcomes(len(spec.Runs))
		if err := writeOutcomes(os.Stdout, outcomes, outputFormat); err != nil {
			logrus.Fatalf("Failed to write outcomes: %v", err)
		}
		if failed := countFailed(outcomes); failed > 0 {
			logrus.Errorf("%d of %d run(s) failed", failed, len(outcomes))
			os.Exit(1)
		}
	},
}

// describeEvent renders a streamed event as "t=<time> <type>: <description>".
func describeEvent(e any) string {
	m, ok := e.(map[string]any)
	if !ok {
		return fmt.Sprint(e)
	}
	return fmt.Sprintf("t=%v %v: %v", m["time"], m["type"], m["description"])
}

func init() {
	remoteCmd.Flags().StringVar(&remoteURL, "url", "http://127.0.0.1:8080", "Base URL of the server")
	remoteCmd.Flags().StringVar(&remotePath, "scenario", "", "Path to a scenario file")
	remoteCmd.Flags().IntVar(&remoteParallel, "parallel", 4, "Runs in flight at once")
	remoteCmd.Flags().BoolVar(&remotePlay, "play", false, "Stream timelines over the websocket instead of posting runs")
	remoteCmd.Flags().DurationVar(&remoteInterval, "interval", 200*time.Millisecond, "Delay between streamed events")
	_ = remoteCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(remoteCmd)
}
