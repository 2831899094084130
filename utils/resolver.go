// utils/resolver.go
package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	dohTimeout = 5 * time.Second
	mxCacheTTL = time.Hour
)

// Major free email providers, matched by substring when every DoH endpoint
// fails. A match yields a synthetic MX result with a placeholder server.
var knownMailProviders = []string{
	"gmail.com", "googlemail.com", "yahoo.com", "outlook.com", "hotmail.com",
	"live.com", "aol.com", "protonmail.com", "proton.me", "icloud.com",
	"me.com", "mail.com", "yandex.com", "zoho.com", "gmx.com",
}

// MXResult is the outcome of MX resolution for a domain. Valid=false means
// "fail open": the pipeline degrades the domain check, it never aborts.
type MXResult struct {
	Valid    bool     `json:"valid"`
	Records  []string `json:"records,omitempty"`
	Resolver string   `json:"resolver,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
}

// dohAnswer mirrors the JSON answer shape shared by Google, Cloudflare and
// Quad9 DNS-over-HTTPS endpoints.
type dohAnswer struct {
	Status int `json:"Status"`
	Answer []struct {
		Name string `json:"name"`
		Type int    `json:"type"`
		Data string `json:"data"`
	} `json:"Answer"`
}

// DNSResolver resolves MX records through an ordered list of DoH endpoints
// with a known-provider shortcut. Results are cached in Redis when a client
// is provided, otherwise in-process.
type DNSResolver struct {
	endpoints []string
	client    *http.Client
	rdb       *redis.Client
	logger    *log.Logger

	cache struct {
		sync.RWMutex
		m map[string]MXResult
	}
}

func NewDNSResolver(endpoints []string, rdb *redis.Client, logger *log.Logger) *DNSResolver {
	r := &DNSResolver{
		endpoints: endpoints,
		client:    &http.Client{Timeout: dohTimeout},
		rdb:       rdb,
		logger:    logger,
	}
	r.cache.m = make(map[string]MXResult)
	return r
}

// LookupMX returns the MX records for a domain. It tries each DoH endpoint in
// order, accepts the first non-empty answer, falls back to the known-provider
// table, and fails open to Valid=false — it never returns an error to the
// caller.
func (r *DNSResolver) LookupMX(ctx context.Context, domain string) MXResult {
	domain = strings.ToLower(strings.TrimSpace(domain))

	if result, ok := r.cached(ctx, domain); ok {
		return result
	}

	result, err := tryEach(r.endpoints, func(endpoint string) (MXResult, error) {
		return r.queryEndpoint(ctx, endpoint, domain)
	})
	if err != nil {
		// Every resolver failed or answered empty; known consumer domains
		// still count as having mail infrastructure.
		if provider := matchKnownProvider(domain); provider != "" {
			result = MXResult{
				Valid:    true,
				Records:  []string{"mail." + provider},
				Resolver: "known-provider",
				Fallback: true,
			}
		} else {
			r.logger.Printf("MX resolution failed for %s: %v", domain, err)
			result = MXResult{Valid: false}
		}
	}

	r.store(ctx, domain, result)
	return result
}

func (r *DNSResolver) queryEndpoint(ctx context.Context, endpoint, domain string) (MXResult, error) {
	url := fmt.Sprintf("%s?name=%s&type=MX", endpoint, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return MXResult{}, err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.client.Do(req)
	if err != nil {
		return MXResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return MXResult{}, fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MXResult{}, err
	}

	var answer dohAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return MXResult{}, fmt.Errorf("%s returned invalid JSON: %w", endpoint, err)
	}

	records := parseMXAnswer(answer)
	if len(records) == 0 {
		return MXResult{}, fmt.Errorf("%s returned no MX records for %s", endpoint, domain)
	}

	return MXResult{Valid: true, Records: records, Resolver: endpoint}, nil
}

// parseMXAnswer extracts mail server hosts from a DoH answer, stripping the
// MX priority prefix and the trailing root-zone dot.
func parseMXAnswer(answer dohAnswer) []string {
	var records []string
	for _, a := range answer.Answer {
		if a.Type != 15 { // MX
			continue
		}
		data := strings.TrimSpace(a.Data)
		// data is "<priority> <host>."
		if fields := strings.Fields(data); len(fields) == 2 {
			data = fields[1]
		}
		host := strings.TrimSuffix(data, ".")
		if host != "" {
			records = append(records, host)
		}
	}
	return records
}

func matchKnownProvider(domain string) string {
	for _, provider := range knownMailProviders {
		if strings.Contains(domain, provider) {
			return provider
		}
	}
	return ""
}

func (r *DNSResolver) cached(ctx context.Context, domain string) (MXResult, bool) {
	if r.rdb != nil {
		raw, err := r.rdb.Get(ctx, "mx:"+domain).Result()
		if err == nil {
			var result MXResult
			if json.Unmarshal([]byte(raw), &result) == nil {
				return result, true
			}
		}
		return MXResult{}, false
	}

	r.cache.RLock()
	defer r.cache.RUnlock()
	result, ok := r.cache.m[domain]
	return result, ok
}

func (r *DNSResolver) store(ctx context.Context, domain string, result MXResult) {
	if r.rdb != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := r.rdb.Set(ctx, "mx:"+domain, raw, mxCacheTTL).Err(); err != nil {
				r.logger.Printf("Failed to cache MX result for %s: %v", domain, err)
			}
		}
		return
	}

	r.cache.Lock()
	r.cache.m[domain] = result
	r.cache.Unlock()
}
