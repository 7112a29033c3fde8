package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the cartlink API request model.
type scrapeRequest struct {
	URL    string `json:"url"`
	MaxAge int    `json:"max_age,omitempty"`
}

// scrapeResponse mirrors the cartlink API response model.
type scrapeResponse struct {
	Success bool `json:"success"`
	Items   []struct {
		Name     string `json:"name"`
		Price    string `json:"price"`
		Quantity string `json:"quantity"`
		Image    string `json:"image"`
		SKU      string `json:"sku"`
	} `json:"items"`
	TotalItems  int    `json:"total_items"`
	Message     string `json:"message"`
	ResolvedURL string `json:"resolved_url"`
	Strategy    string `json:"strategy"`
}

func main() {
	apiURL := strings.TrimSuffix(os.Getenv("CARTLINK_API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("CARTLINK_API_KEY")

	s := server.NewMCPServer(
		"cartlink",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeCartTool := mcp.NewTool("scrape_cart",
		mcp.WithDescription("Extract the line items (name, price, quantity, image) from a shared Shein cart link. Share links are resolved to the cart landing page first."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The shared cart URL or cart page URL"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Accept a cached result younger than this many milliseconds (0 disables the cache)"),
		),
	)

	s.AddTool(scrapeCartTool, handleScrapeCart(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrapeCart(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := json.Marshal(scrapeRequest{
			URL:    url,
			MaxAge: int(request.GetFloat("max_age", 0)),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/scrape-cart", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			return mcp.NewToolResultError(fmt.Sprintf("[HTTP %d] %s", resp.StatusCode, scrapeResp.Message)), nil
		}

		return mcp.NewToolResultText(formatCart(&scrapeResp)), nil
	}
}

// formatCart renders the items as a numbered list.
func formatCart(r *scrapeResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d items)\n", r.Message, r.TotalItems)
	if r.ResolvedURL != "" {
		fmt.Fprintf(&b, "Resolved: %s\n", r.ResolvedURL)
	}
	for i, it := range r.Items {
		fmt.Fprintf(&b, "\n%d. %s", i+1, it.Name)
		if it.Price != "" {
			fmt.Fprintf(&b, "\n   Price: %s", it.Price)
		}
		if it.Quantity != "" {
			fmt.Fprintf(&b, "\n   Quantity: %s", it.Quantity)
		}
		if it.Image != "" {
			fmt.Fprintf(&b, "\n   Image: %s", it.Image)
		}
		if it.SKU != "" {
			fmt.Fprintf(&b, "\n   SKU: %s", it.SKU)
		}
	}
	return b.String()
}
