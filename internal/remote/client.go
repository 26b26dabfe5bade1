// Package remote holds the typed HTTP calls the cart service makes to the
// catalogue, identity and order services.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"microshop/internal/config"
	"microshop/internal/domain"
)

// Resolver maps a logical service name to a base URL.
type Resolver interface {
	Resolve(ctx context.Context, service string) (string, error)
}

// UpstreamError is returned for transport failures, non-2xx responses and
// undecodable bodies. It matches domain.ErrUpstream.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s service", e.Service)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " returned %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == domain.ErrUpstream }

// Client calls are single-attempt; no timeout is set beyond what the
// supplied http.Client carries.
type Client struct {
	resolver Resolver
	http     *http.Client
}

func NewClient(resolver Resolver, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{resolver: resolver, http: httpClient}
}

func (c *Client) FetchProduct(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	var p domain.Product
	path := "/catalogue/products/id=" + strconv.FormatInt(productID, 10)
	if err := c.do(ctx, config.ServiceCatalogue, http.MethodGet, path, nil, nil, &p); err != nil {
		return domain.ProductSnapshot{}, err
	}
	if p.ID != productID || p.Name == "" {
		return domain.ProductSnapshot{}, &UpstreamError{
			Service: config.ServiceCatalogue,
			Message: fmt.Sprintf("unexpected product payload for id %d", productID),
		}
	}
	return p.Snapshot(), nil
}

// FetchAccount forwards the caller's token; the identity service decides
// whether the caller may read the account.
func (c *Client) FetchAccount(ctx context.Context, accountID int64, token string) (domain.AccountSnapshot, error) {
	var a domain.Account
	path := "/accounts/id=" + strconv.FormatInt(accountID, 10)
	if err := c.do(ctx, config.ServiceIdentity, http.MethodGet, path, nil, authHeader(token, ""), &a); err != nil {
		return domain.AccountSnapshot{}, err
	}
	return a.Snapshot(), nil
}

func (c *Client) CreateOrder(ctx context.Context, draft domain.OrderDraft, token, idempotencyKey string) (domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, config.ServiceOrder, http.MethodPost, "/orders", draft, authHeader(token, idempotencyKey), &o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func authHeader(token, idempotencyKey string) http.Header {
	h := make(http.Header)
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		h.Set("Idempotency-Key", idempotencyKey)
	}
	return h
}

func (c *Client) do(ctx context.Context, service, method, path string, body any, header http.Header, out any) error {
	base, err := c.resolver.Resolve(ctx, service)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", service, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, reader)
	if err != nil {
		return &UpstreamError{Service: service, Err: err}
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Service: service, StatusCode: resp.StatusCode, Message: "undecodable body", Err: err}
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a failed response, falling back
// to the raw body.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(raw))
}
