package smm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrderSendsFormWithKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "add", r.PostForm.Get("action"))
		assert.Equal(t, "secret-key", r.PostForm.Get("key"))
		assert.Equal(t, "3317", r.PostForm.Get("service"))
		assert.Equal(t, "500", r.PostForm.Get("quantity"))
		w.Write([]byte(`{"order": 991288}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")

	id, err := c.AddOrder(context.Background(), "3317", "https://instagram.com/p/abc", 500)
	require.NoError(t, err)
	assert.Equal(t, "991288", id)
}

func TestAddOrderRejectionKeepsRawPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Not enough funds on provider balance"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")

	_, err := c.AddOrder(context.Background(), "1", "https://x.com/u", 100)
	var rej *Rejection
	require.True(t, errors.As(err, &rej))
	assert.Contains(t, rej.Message, "Not enough funds")
	assert.Contains(t, string(rej.Raw), "error")
}

func TestAddOrderTransientOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")

	_, err := c.AddOrder(context.Background(), "1", "https://x.com/u", 100)
	assert.True(t, errors.Is(err, ErrTransient))
}

func TestOrderStatusLowercased(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "status", r.PostForm.Get("action"))
		assert.Equal(t, "991288", r.PostForm.Get("order"))
		w.Write([]byte(`{"status": "In progress"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")

	status, err := c.OrderStatus(context.Background(), "991288")
	require.NoError(t, err)
	assert.Equal(t, "in progress", status)
}

func TestMalformedResponseIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>cloudflare challenge</html>`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")

	_, err := c.OrderStatus(context.Background(), "1")
	assert.True(t, errors.Is(err, ErrTransient))
}
