package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/handler"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	K           int
	Queries     []corpus.QueryRecord
}

// Stats collects results for one request mode (baseline or expanded).
type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	fallbacks     atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, fallback bool, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if fallback {
		s.fallbacks.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func (s *Stats) sortedLatencies() []time.Duration {
	s.latenciesMu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	s.latenciesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})
	return latencies
}

var modes = []string{"baseline", "expanded"}

func main() {
	flags := pflag.NewFlagSet("loadtest", pflag.ExitOnError)
	baseURL := flags.String("url", "http://localhost:8080", "base URL of the search service")
	queriesPath := flags.String("queries", "", "queries JSONL file ({qid, query} per line)")
	concurrency := flags.Int("concurrency", 10, "number of concurrent workers")
	duration := flags.Duration("duration", 30*time.Second, "test duration")
	k := flags.Int("k", 10, "results requested per query")
	_ = flags.Parse(os.Args[1:])

	if *queriesPath == "" {
		fmt.Fprintln(os.Stderr, "--queries is required")
		os.Exit(2)
	}
	queries, err := corpus.LoadQueries(*queriesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
		os.Exit(1)
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		K:           *k,
		Queries:     queries,
	}

	fmt.Println("=== Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d\n", len(cfg.Queries))
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg.Duration)
}

// runLoadTest alternates every query between baseline and expanded
// requests so both modes see the same query mix.
func runLoadTest(cfg Config) map[string]*Stats {
	stats := make(map[string]*Stats, len(modes))
	for _, m := range modes {
		stats[m] = NewStats()
	}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			n := workerID
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				q := cfg.Queries[(n/len(modes))%len(cfg.Queries)]
				mode := modes[n%len(modes)]
				n++

				params := url.Values{}
				params.Set("qid", q.QID)
				params.Set("q", q.Query)
				params.Set("k", strconv.Itoa(cfg.K))
				params.Set("expand", strconv.FormatBool(mode == "expanded"))
				searchURL := cfg.BaseURL + "/api/v1/search?" + params.Encode()

				start := time.Now()
				status, fallback, err := search(ctx, client, searchURL)
				if ctx.Err() != nil {
					return
				}
				stats[mode].RecordRequest(time.Since(start), status, fallback, err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func search(ctx context.Context, client *http.Client, rawURL string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, false, nil
	}
	var body handler.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, false, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, body.Expansion.Fallback, nil
}

func printReport(stats map[string]*Stats, duration time.Duration) {
	headers := []string{"mode", "requests", "errors", "req/s", "fallbacks", "p50", "p90", "p99", "max", "stddev"}
	rows := make([][]string, 0, len(modes))
	var total int64
	for _, mode := range modes {
		s := stats[mode]
		n := s.totalRequests.Load()
		total += n
		latencies := s.sortedLatencies()
		row := []string{
			mode,
			strconv.FormatInt(n, 10),
			strconv.FormatInt(s.errorCount.Load(), 10),
			fmt.Sprintf("%.1f", float64(n)/duration.Seconds()),
			strconv.FormatInt(s.fallbacks.Load(), 10),
			percentile(latencies, 50).String(),
			percentile(latencies, 90).String(),
			percentile(latencies, 99).String(),
			percentile(latencies, 100).String(),
			stddev(latencies).String(),
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col > 0 {
				return s.Align(lipgloss.Right)
			}
			return s
		})
	fmt.Println(t.Render())

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	for _, mode := range modes {
		s := stats[mode]
		s.statusCodesMu.Lock()
		codes := make([]int, 0, len(s.statusCodes))
		for code := range s.statusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Printf("  %-8s %d: %d\n", mode, code, s.statusCodes[code].Load())
		}
		s.statusCodesMu.Unlock()
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func stddev(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := float64(sum) / float64(len(latencies))
	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l) - avg
		sumSquared += diff * diff
	}
	return time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
