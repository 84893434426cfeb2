package server_test

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"opecours/internal/domain/stock"
	"opecours/internal/repository"
	"opecours/internal/server"
)

type fakeService struct {
	read    []repository.State
	refresh repository.State
	watch   chan repository.State
}

func (f *fakeService) Stocks(ctx context.Context) <-chan repository.State {
	ch := make(chan repository.State, len(f.read))
	for _, s := range f.read {
		ch <- s
	}
	close(ch)
	return ch
}

func (f *fakeService) Refresh(context.Context) repository.State { return f.refresh }

func (f *fakeService) Watch(ctx context.Context) <-chan repository.State {
	out := make(chan repository.State)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-f.watch:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

var orange = []stock.Stock{{Symbol: "ORA.PA", OperatorName: "Orange", CurrentPrice: 14.16, HistoricalPrices: []float64{14.16}}}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := server.NewRouter(&fakeService{}, server.Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestOperators(t *testing.T) {
	t.Parallel()

	h := server.NewRouter(&fakeService{}, server.Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/operators", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 4)
	require.Equal(t, "ORA.PA", got[0]["symbol"])
	require.Equal(t, "#FF7900", got[0]["color"])
	require.Equal(t, false, got[3]["active"])
}

func TestStocks_ReturnsLastState(t *testing.T) {
	t.Parallel()

	// Arrange
	svc := &fakeService{read: []repository.State{
		repository.Loading(),
		repository.Success(nil),
		repository.Success(orange),
	}}
	h := server.NewRouter(svc, server.Options{})

	// Act
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var got repository.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, repository.Success(orange), got)
}

func TestStocks_ErrorIsBadGateway(t *testing.T) {
	t.Parallel()

	svc := &fakeService{read: []repository.State{
		repository.Loading(),
		repository.Failure("no connectivity and no cached data"),
	}}
	h := server.NewRouter(svc, server.Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.JSONEq(t, `{"status":"error","data":[],"message":"no connectivity and no cached data"}`, rec.Body.String())
}

func TestRefresh_Gzip(t *testing.T) {
	t.Parallel()

	svc := &fakeService{refresh: repository.Success(orange)}
	h := server.NewRouter(svc, server.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/stocks/refresh", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	b, err := io.ReadAll(zr)
	require.NoError(t, err)

	var got repository.State
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, repository.StatusSuccess, got.Status)
}

func TestRefresh_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := server.NewRouter(&fakeService{}, server.Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks/refresh", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := server.NewRouter(&fakeService{}, server.Options{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/stocks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStream_SSEFraming(t *testing.T) {
	t.Parallel()

	// Arrange
	svc := &fakeService{watch: make(chan repository.State)}
	srv := httptest.NewServer(server.NewRouter(svc, server.Options{KeepAlive: time.Hour}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stocks/stream", nil)
	require.NoError(t, err)

	// Act
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	go func() {
		svc.watch <- repository.Loading()
		svc.watch <- repository.Success(orange)
	}()

	// Assert
	require.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
	reader := bufio.NewReader(res.Body)
	events := readEvents(t, reader, 2)
	require.Equal(t, "loading", events[0].name)
	require.Equal(t, "success", events[1].name)

	var got repository.State
	require.NoError(t, json.Unmarshal([]byte(events[1].data), &got))
	require.Equal(t, repository.Success(orange), got)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, r *bufio.Reader, n int) []sseEvent {
	t.Helper()
	var (
		out []sseEvent
		cur sseEvent
	)
	for len(out) < n {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.name != "":
			out = append(out, cur)
			cur = sseEvent{}
		}
	}
	return out
}
