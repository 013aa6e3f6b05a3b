package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockex-offline-sync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcCall struct {
	Path   string
	Method string
	Params map[string]json.RawMessage
}

func newServer(t *testing.T, handle func(path string, params map[string]json.RawMessage) (int, string)) (*Client, *[]rpcCall) {
	t.Helper()
	var calls []rpcCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string                     `json:"jsonrpc"`
			Method  string                     `json:"method"`
			Params  map[string]json.RawMessage `json:"params"`
		}
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "2.0", req.JSONRPC)
		calls = append(calls, rpcCall{Path: r.URL.Path, Method: req.Method, Params: req.Params})

		status, resp := handle(r.URL.Path, req.Params)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:     srv.URL + "/",
		SyncPath:    "/api/mobile/inventories/sync",
		SearchPath:  "/api/mobile/products/search",
		AddLinePath: "/api/mobile/inventory/add-line",
	}, nil)
	return client, &calls
}

func TestSyncInventoriesSuccess(t *testing.T) {
	client, calls := newServer(t, func(string, map[string]json.RawMessage) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"success":true,
			"synced":[{"local_id":"temp-1","server_id":42,"name":"INV/001","lines_count":1}],
			"errors":[],"total":1,"synced_count":1,"error_count":0}}`
	})

	pending := []model.PendingInventory{{
		LocalID:    "temp-1",
		LocationID: 8,
		Date:       "2025-10-28",
		Lines:      []model.InventoryLine{{ProductID: 7, RealQty: 3}},
		Synced:     false,
	}}
	result, err := client.SyncInventories(context.Background(), pending)
	require.NoError(t, err)
	assert.Equal(t, []model.SyncedPair{{LocalID: "temp-1", ServerID: 42, Name: "INV/001", LinesCount: 1}}, result.Synced)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/api/mobile/inventories/sync", call.Path)
	assert.Equal(t, "call", call.Method)
	assert.JSONEq(t,
		`[{"local_id":"temp-1","location_id":8,"date":"2025-10-28","lines":[{"product_id":7,"real_qty":3}]}]`,
		string(call.Params["inventories"]))
}

func TestSyncInventoriesRejected(t *testing.T) {
	client, _ := newServer(t, func(string, map[string]json.RawMessage) (int, string) {
		return http.StatusOK, `{"result":{"success":false,"error":"Non authentifié"}}`
	})

	result, err := client.SyncInventories(context.Background(), []model.PendingInventory{{LocalID: "temp-1"}})
	var rejected *SyncRejected
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Non authentifié", rejected.Message)
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestTransportErrors(t *testing.T) {
	cases := map[string]struct {
		status  int
		body    string
		offline bool
	}{
		"server error":   {http.StatusInternalServerError, `oops`, false},
		"offline answer": {http.StatusServiceUnavailable, `{"error":true,"offline":true,"message":"x"}`, true},
		"rpc error":      {http.StatusOK, `{"error":{"code":200,"message":"Odoo Server Error","data":{"message":"boom"}}}`, false},
		"not json":       {http.StatusOK, `<html>`, false},
		"null result":    {http.StatusOK, `{"result":null}`, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			client, _ := newServer(t, func(string, map[string]json.RawMessage) (int, string) {
				return tc.status, tc.body
			})

			_, err := client.SearchProduct(context.Background(), "123")
			var transportErr *TransportError
			require.True(t, errors.As(err, &transportErr), "got %v", err)
			assert.Equal(t, "search product", transportErr.Op)
			assert.Equal(t, tc.offline, transportErr.Offline)
		})
	}
}

func TestTransportErrorWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SyncPath: "/sync"}, nil)
	_, err := client.SyncInventories(context.Background(), nil)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Zero(t, transportErr.StatusCode)
}

func TestSearchProduct(t *testing.T) {
	client, calls := newServer(t, func(string, map[string]json.RawMessage) (int, string) {
		return http.StatusOK, `{"result":{"found":true,"product":{"id":7,"name":"Soap","code":"SOAP-01",
			"uom":"Units","uom_id":1,"standard_price":2.5,"tracking":"none"}}}`
	})

	result, err := client.SearchProduct(context.Background(), "8901030895557")
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, model.CachedProduct{
		ID: 7, Barcode: "8901030895557", Code: "SOAP-01", Name: "Soap",
		UoM: "Units", UoMID: 1, StandardPrice: 2.5, Tracking: "none",
	}, *result.Product)
	assert.JSONEq(t, `"8901030895557"`, string((*calls)[0].Params["barcode"]))
}

func TestSearchProductNotFound(t *testing.T) {
	client, _ := newServer(t, func(string, map[string]json.RawMessage) (int, string) {
		return http.StatusOK, `{"result":{"found":false,"message":"Produit non trouvé: 999"}}`
	})

	result, err := client.SearchProduct(context.Background(), "999")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Nil(t, result.Product)
}

func TestAddLine(t *testing.T) {
	client, calls := newServer(t, func(string, map[string]json.RawMessage) (int, string) {
		return http.StatusOK, `{"result":{"success":true,"line":{"id":5,"product_name":"Soap",
			"theoretical_qty":10,"real_qty":3,"difference":-7}}}`
	})

	result, err := client.AddLine(context.Background(), 42, 7, 3)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, &model.ServerLine{ID: 5, ProductName: "Soap", TheoreticalQty: 10, RealQty: 3, Difference: -7}, result.Line)

	params := (*calls)[0].Params
	assert.JSONEq(t, `42`, string(params["inventory_id"]))
	assert.JSONEq(t, `7`, string(params["product_id"]))
	assert.JSONEq(t, `3`, string(params["real_qty"]))
}
