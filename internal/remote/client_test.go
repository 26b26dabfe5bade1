package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microshop/internal/config"
	"microshop/internal/discovery"
	"microshop/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	reg := discovery.NewStaticRegistry(map[string][]string{
		config.ServiceCatalogue: {srv.URL},
		config.ServiceIdentity:  {srv.URL},
		config.ServiceOrder:     {srv.URL},
	})
	return NewClient(discovery.NewLocator(reg), srv.Client())
}

func TestFetchProduct(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalogue/products/id=3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":3,"name":"NB Trainers","category":"trainers","price":"3.00","color":"green"}`))
	}))

	p, err := c.FetchProduct(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, "NB Trainers", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("3")))
}

func TestFetchProduct_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"product 9 does not exist"}`))
	}))

	_, err := c.FetchProduct(context.Background(), 9)
	require.ErrorIs(t, err, domain.ErrUpstream)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
	assert.Equal(t, "product 9 does not exist", upstream.Message)
	assert.Equal(t, config.ServiceCatalogue, upstream.Service)
}

func TestFetchProduct_Undecodable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))

	_, err := c.FetchProduct(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestFetchAccount_ForwardsToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/id=2", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"id":2,"name":"Luis","surname":"Ballestin","address":"Calle 1","username":"lb","role":"USER"}`))
	}))

	a, err := c.FetchAccount(context.Background(), 2, "tok")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountSnapshot{Name: "Luis", Surname: "Ballestin", Address: "Calle 1"}, a)

	_, err = c.FetchAccount(context.Background(), 2, "other")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)
}

func TestCreateOrder(t *testing.T) {
	date := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var draft domain.OrderDraft
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.True(t, draft.TotalCost.Equal(decimal.RequireFromString("11.00")))

		json.NewEncoder(w).Encode(domain.Order{
			ID:        7,
			AccountID: draft.AccountID,
			Addressee: draft.Addressee,
			Address:   draft.Address,
			TotalCost: draft.TotalCost,
			Date:      draft.Date,
		})
	}))

	o, err := c.CreateOrder(context.Background(), domain.OrderDraft{
		AccountID: 2,
		Addressee: "Luis Ballestin",
		Address:   "Calle 1",
		TotalCost: decimal.RequireFromString("11.00"),
		Date:      date,
	}, "tok", "key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), o.ID)
	assert.True(t, o.Date.Equal(date))
}

func TestClient_ServiceUnavailable(t *testing.T) {
	c := NewClient(discovery.NewLocator(discovery.NewStaticRegistry(nil)), nil)

	_, err := c.FetchProduct(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	_, err = c.CreateOrder(context.Background(), domain.OrderDraft{}, "", "")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestClient_TransportFailure(t *testing.T) {
	reg := discovery.NewStaticRegistry(map[string][]string{config.ServiceOrder: {"http://127.0.0.1:1"}})
	c := NewClient(discovery.NewLocator(reg), nil)

	_, err := c.CreateOrder(context.Background(), domain.OrderDraft{}, "", "")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}
