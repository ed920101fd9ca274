package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"receiving/internal/client"
	"receiving/internal/docstore"
	"receiving/pkg/authtoken"
	"receiving/pkg/config"
	"receiving/pkg/db"
)

// devflow seeds a client into Postgres, then walks one booking through the
// API: create, status change, manual entry, history read.
func main() {
	var (
		baseURL    = flag.String("base-url", "", "API base url (defaults to http://localhost<HTTP_ADDR>)")
		clientName = flag.String("client-name", "Devflow Client", "name of the client to seed")
		taxID      = flag.String("tax-id", "11222333000181", "tax id of the client to seed")
		date       = flag.String("date", time.Now().Format("2006-01-02"), "scheduled date for the booking")
		accessKey  = flag.String("access-key", "", "optional 44 character access key")
	)
	flag.Parse()

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = defaultBaseURL(cfg.HTTPAddr)
	}

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	store := docstore.NewPostgres(pool)
	clientID, err := store.Create(ctx, client.Collection, client.Client{Name: *clientName, TaxID: *taxID})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed client: %v\n", err)
		os.Exit(1)
	}

	var bearer string
	if cfg.Auth.JWTSecret != "" {
		bearer, err = authtoken.Issue(cfg.Auth.JWTSecret, cfg.Auth.Audience, "devflow", 15*time.Minute, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
			os.Exit(1)
		}
	}
	c := apiClient{base: strings.TrimSuffix(*baseURL, "/"), bearer: bearer, http: &http.Client{Timeout: 10 * time.Second}}

	var created struct {
		ID       string   `json:"id"`
		Status   string   `json:"status"`
		Warnings []string `json:"warnings"`
	}
	c.do(http.MethodPost, "/v1/bookings", map[string]any{
		"clientRef":     clientID,
		"scheduledDate": *date,
		"accessKey":     *accessKey,
		"volumes":       12,
	}, http.StatusCreated, &created)

	c.do(http.MethodPatch, "/v1/bookings/"+created.ID+"/status", map[string]any{"status": "received"}, http.StatusOK, nil)
	c.do(http.MethodPost, "/v1/bookings/"+created.ID+"/history", map[string]any{
		"status": "informed",
		"note":   "added by devflow",
	}, http.StatusCreated, nil)

	var history struct {
		CurrentStatus string `json:"currentStatus"`
		Entries       []struct {
			Status        string    `json:"status"`
			Timestamp     time.Time `json:"timestamp"`
			ManuallyAdded bool      `json:"manuallyAdded"`
		} `json:"entries"`
	}
	c.do(http.MethodGet, "/v1/bookings/"+created.ID+"/history", nil, http.StatusOK, &history)

	fmt.Printf("Seed complete.\n")
	fmt.Printf("client_id=%s\n", clientID)
	fmt.Printf("booking_id=%s status=%s\n", created.ID, history.CurrentStatus)
	for _, w := range created.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Printf("history:\n")
	for i, e := range history.Entries {
		fmt.Printf("  [%d] %s at=%s manual=%t\n", i, e.Status, e.Timestamp.Format(time.RFC3339), e.ManuallyAdded)
	}
}

type apiClient struct {
	base   string
	bearer string
	http   *http.Client
}

func (c apiClient) do(method, path string, body any, want int, out any) {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", method, path, err)
		fmt.Fprintf(os.Stderr, "tip: is the API running, and is HTTP_ADDR set correctly? base_url=%s\n", c.base)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fmt.Fprintf(os.Stderr, "%s %s status=%d body=%s\n", method, path, resp.StatusCode, string(b))
		os.Exit(1)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			fmt.Fprintf(os.Stderr, "decode %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func defaultBaseURL(httpAddr string) string {
	// httpAddr is typically ":8081" or "0.0.0.0:8081".
	addr := strings.TrimSpace(httpAddr)
	if addr == "" {
		addr = ":8081"
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}
