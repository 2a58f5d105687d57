package feed

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedToken = common.HexToAddress("0x1111111111111111111111111111111111111111")

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, WithMaxRetries(2))
	require.NoError(t, err, "client construction should succeed")
	return srv, client
}

func TestClient_GetPrices(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, feedToken.Hex(), r.URL.Query().Get("token"))
		fmt.Fprintf(w, `{"token":%q,"minPrice":"29000000000000000000000000000000000","maxPrice":"29050000000000000000000000000000000","updateMs":1723000000000}`, feedToken.Hex())
	})

	maxPx, err := client.GetMaxPrice(context.Background(), feedToken)
	require.NoError(t, err)
	minPx, err := client.GetMinPrice(context.Background(), feedToken)
	require.NoError(t, err)

	want, _ := new(big.Int).SetString("29050000000000000000000000000000000", 10)
	assert.Equal(t, 0, maxPx.Cmp(want), "max quote should parse as 1e30 fixed point")
	assert.Equal(t, -1, minPx.Cmp(maxPx), "feed must keep min below max")
}

func TestClient_TokenNotQuoted(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := client.GetMinPrice(context.Background(), feedToken)
	assert.ErrorIs(t, err, ErrTokenNotQuoted, "404 maps to ErrTokenNotQuoted without retrying")
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream stale", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"token":%q,"minPrice":"100","maxPrice":"200","updateMs":1}`, feedToken.Hex())
	})

	px, err := client.GetMaxPrice(context.Background(), feedToken)
	require.NoError(t, err, "second attempt should succeed")
	assert.Equal(t, int64(200), px.Int64())
	assert.Equal(t, int32(2), calls.Load(), "expected exactly one retry")
}

func TestClient_RejectsMalformedPrice(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token":%q,"minPrice":"-5","maxPrice":"abc","updateMs":1}`, feedToken.Hex())
	})

	_, err := client.GetMaxPrice(context.Background(), feedToken)
	assert.Error(t, err, "non-numeric quote must be rejected")
	_, err = client.GetMinPrice(context.Background(), feedToken)
	assert.Error(t, err, "negative quote must be rejected")
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}
