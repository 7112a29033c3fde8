package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "cartlink API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// --- Request / Response types (mirrors models package) ---

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	Success     bool       `json:"success"`
	Items       []struct{} `json:"items"`
	TotalItems  int        `json:"total_items"`
	Message     string     `json:"message"`
	ResolvedURL string     `json:"resolved_url"`
	Strategy    string     `json:"strategy"`
	Timing      *struct {
		TotalMs   int64 `json:"total_ms"`
		ResolveMs int64 `json:"resolve_ms"`
		FetchMs   int64 `json:"fetch_ms"`
		ExtractMs int64 `json:"extract_ms"`
	} `json:"timing"`
}

// --- Benchmark result types ---

type runResult struct {
	Run        int    `json:"run"`
	HTTPStatus int    `json:"http_status"`
	TotalMs    int64  `json:"total_ms"`
	ResolveMs  int64  `json:"resolve_ms"`
	FetchMs    int64  `json:"fetch_ms"`
	ExtractMs  int64  `json:"extract_ms"`
	Items      int    `json:"items"`
	Strategy   string `json:"strategy,omitempty"`
	Resolved   bool   `json:"resolved"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs   float64 `json:"total_ms"`
	ResolveMs float64 `json:"resolve_ms"`
	FetchMs   float64 `json:"fetch_ms"`
	ExtractMs float64 `json:"extract_ms"`
	Items     float64 `json:"items"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: benchmark [flags] <cart-url>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	urls := flag.Args()
	if len(urls) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	fmt.Println("=== cartlink Benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, u := range urls {
		fmt.Printf("Benchmarking %s ...\n", u)
		ur := urlResult{URL: u}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(u, i)
			if rr.OK {
				fmt.Printf("OK  %dms  %d items (%s)\n", rr.TotalMs, rr.Items, rr.Strategy)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// benchmarkURL runs one scrape. A 200 counts as OK even with zero items.
func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(scrapeRequest{URL: url})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/scrape-cart", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.HTTPStatus = resp.StatusCode
	rr.OK = resp.StatusCode == http.StatusOK
	rr.Items = sr.TotalItems
	rr.Strategy = sr.Strategy
	rr.Resolved = sr.ResolvedURL != ""
	if sr.Timing != nil {
		rr.TotalMs = sr.Timing.TotalMs
		rr.ResolveMs = sr.Timing.ResolveMs
		rr.FetchMs = sr.Timing.FetchMs
		rr.ExtractMs = sr.Timing.ExtractMs
	}
	if !rr.OK {
		rr.Error = sr.Message
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var okCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.OK {
			continue
		}
		okCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.ResolveMs += float64(r.ResolveMs)
		avg.FetchMs += float64(r.FetchMs)
		avg.ExtractMs += float64(r.ExtractMs)
		avg.Items += float64(r.Items)
	}

	if okCount == 0 {
		return nil
	}

	n := float64(okCount)
	avg.TotalMs /= n
	avg.ResolveMs /= n
	avg.FetchMs /= n
	avg.ExtractMs /= n
	avg.Items /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Total\tResolve\tFetch\tExtract\tItems\n")
	fmt.Fprintf(w, "───\t─────────\t───────\t─────\t───────\t─────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}
		a := r.Averages
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%dms\t%dms\t%.1f\n",
			truncateURL(r.URL, 40),
			int64(a.TotalMs), int64(a.ResolveMs), int64(a.FetchMs), int64(a.ExtractMs),
			a.Items,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
