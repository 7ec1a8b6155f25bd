package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-orders/internal/clock"
	"restaurant-orders/internal/common/httpx"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/feed"
	"restaurant-orders/internal/orders"
	"restaurant-orders/internal/store/memory"
)

var t0 = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (http.Handler, *orders.Repository, *clock.Manual) {
	t.Helper()
	hub := feed.NewHub()
	clk := clock.NewManual(t0)
	repo := orders.New(memory.New(hub), hub, nil, orders.Options{Clock: clk, Logger: logger.Nop()})
	r := httpx.NewRouter(logger.Nop())
	New(repo).Register(r)
	return r, repo, clk
}

func place(t *testing.T, repo *orders.Repository, table int) string {
	t.Helper()
	id, err := repo.CreateOrder(context.Background(), domain.OrderInput{
		TableNumber: table,
		Items:       []domain.OrderItem{{ID: "item_pizza", Name: "Pizza", Price: decimal.NewFromInt(10), Quantity: 2}},
	})
	require.NoError(t, err)
	return id
}

func TestGetStatus_RemainingETA(t *testing.T) {
	r, repo, clk := setup(t)
	id := place(t, repo, 5)
	require.NoError(t, repo.UpdateETA(context.Background(), id, 15))
	clk.Advance(5 * time.Minute)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tracking/orders/"+id+"/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var v statusView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, domain.StatusPending, v.Status)
	require.NotNil(t, v.RemainingMinutes)
	assert.Equal(t, 10, *v.RemainingMinutes)
	assert.Equal(t, 15, *v.EstimatedMinutes)
}

func TestGetStatus_NoETAAndNotFound(t *testing.T) {
	r, repo, _ := setup(t)
	id := place(t, repo, 5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tracking/orders/"+id+"/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "remaining_minutes")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tracking/orders/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTimeline(t *testing.T) {
	r, repo, _ := setup(t)
	id := place(t, repo, 5)
	require.NoError(t, repo.UpdateStatus(context.Background(), id, domain.StatusPreparing))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tracking/orders/"+id+"/timeline", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Events []domain.StatusChange `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, domain.StatusPreparing, body.Events[1].Status)
}

func TestStreamTable_BadParam(t *testing.T) {
	r, _, _ := setup(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tracking/tables/0/stream", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// readEvents yields the data payload of each SSE event on the response.
func readEvents(t *testing.T, resp *http.Response) <-chan tracked {
	t.Helper()
	out := make(chan tracked, 16)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var ev tracked
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &ev) == nil {
				out <- ev
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, ch <-chan tracked, cond func(tracked) bool) tracked {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "stream closed")
			if cond(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("no matching event")
		}
	}
}

func TestStreamTable(t *testing.T) {
	r, repo, _ := setup(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/tracking/tables/5/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	nextEvent(t, events, func(ev tracked) bool { return !ev.Found })

	id := place(t, repo, 5)
	ev := nextEvent(t, events, func(ev tracked) bool { return ev.Found })
	assert.Equal(t, id, ev.Order.OrderID)

	require.NoError(t, repo.UpdateStatus(context.Background(), id, domain.StatusServed))
	nextEvent(t, events, func(ev tracked) bool { return !ev.Found })
}
