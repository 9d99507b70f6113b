// Package steam fetches player summaries from the Steam Web API.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dowstats/ladder-api/internal/models"
)

const (
	DefaultBaseURL = "https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v0002/"
	DefaultTimeout = 5 * time.Second

	// BatchSize is the most ids GetPlayerSummaries accepts per call
	BatchSize = 100

	maxParallelBatches = 4
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client looks up profiles by Steam id. Without an API key every lookup is empty.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	logger  *zap.SugaredLogger
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		http: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
		logger: cfg.Logger.Sugar(),
	}
}

type summariesResponse struct {
	Response struct {
		Players []models.ExternalProfile `json:"players"`
	} `json:"response"`
}

// Lookup fetches the summaries of the given ids in batches. Profiles of the
// batches that succeeded are returned even when another batch failed.
func (c *Client) Lookup(ctx context.Context, sids []string) (map[string]*models.ExternalProfile, error) {
	result := make(map[string]*models.ExternalProfile)
	ids := uniqueIDs(sids)
	if len(ids) == 0 || c.apiKey == "" {
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(maxParallelBatches)

	for start := 0; start < len(ids); start += BatchSize {
		batch := ids[start:min(start+BatchSize, len(ids))]
		g.Go(func() error {
			players, err := c.fetchBatch(ctx, batch)
			if err != nil {
				c.logger.Warnw("Steam batch failed", "size", len(batch), "error", err)
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for i := range players {
				p := players[i]
				if p.SID == "" {
					continue
				}
				result[p.SID] = &p
			}
			return nil
		})
	}

	err := g.Wait()
	return result, err
}

func (c *Client) fetchBatch(ctx context.Context, ids []string) ([]models.ExternalProfile, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("steamids", strings.Join(ids, ","))
	req.SetRequestURI(c.baseURL + "?" + q.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("steam request: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("steam API error: %d", resp.StatusCode())
	}

	var body summariesResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode steam response: %w", err)
	}
	return body.Response.Players, nil
}

func uniqueIDs(sids []string) []string {
	seen := make(map[string]bool, len(sids))
	out := make([]string, 0, len(sids))
	for _, s := range sids {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
