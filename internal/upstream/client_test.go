package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestClient(limit, attempts int) *Client {
	return NewClient(Config{
		Limit:         limit,
		Timeout:       2 * time.Second,
		RetryAttempts: attempts,
		RetryBackoff:  time.Millisecond,
	})
}

func TestParseListFlattensOneLevel(t *testing.T) {
	body := []byte(`[[{"name":"a"},{"name":"b"}],[{"name":"c"}],{"name":"d"},[[{"name":"deep"}]]]`)

	entries, err := ParseList(body, 100)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "a", entries[0].Get("name").String())
	assert.Equal(t, "d", entries[3].Get("name").String())
	// 只展开一层
	assert.True(t, entries[4].IsArray())
}

func TestParseListTruncates(t *testing.T) {
	body := []byte(`[[{"id":1},{"id":2},{"id":3}],[{"id":4},{"id":5}]]`)

	entries, err := ParseList(body, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "3", entries[2].Get("id").String())
}

func TestParseListRejectsNonArray(t *testing.T) {
	_, err := ParseList([]byte(`{"name":"x"}`), 100)
	assert.Error(t, err)

	_, err = ParseList([]byte(`[{"name":`), 100)
	assert.Error(t, err)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[[{"name":"ok"}]]`))
	}))
	defer srv.Close()

	entries, err := newTestClient(100, 3).Fetch(context.Background(), Source{Name: "android", URL: srv.URL})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchGivesUpAfterAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(100, 2).Fetch(context.Background(), Source{Name: "ios", URL: srv.URL})
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "ios", fetchErr.Source)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(100, 3).Fetch(context.Background(), Source{Name: "android", URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchAllKeepsSourceOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/android.json", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`[[{"name":"A1"},{"name":"A2"}]]`))
	})
	mux.HandleFunc("/ios.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[{"name":"I1"}]]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	batches, err := newTestClient(100, 1).FetchAll(context.Background(), []Source{
		{Name: "android", URL: srv.URL + "/android.json"},
		{Name: "ios", URL: srv.URL + "/ios.json"},
	})
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Equal(t, "I1", batches[1][0].Get("name").String())
}

func TestFetchAllFailsWhenAnySourceFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestClient(100, 1).FetchAll(context.Background(), []Source{
		{Name: "android", URL: srv.URL + "/ok.json"},
		{Name: "ios", URL: srv.URL + "/missing.json"},
	})
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "ios", fetchErr.Source)
}

func TestFetchHonorsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{Timeout: 50 * time.Millisecond, RetryAttempts: 1})
	start := time.Now()
	_, err := c.Fetch(context.Background(), Source{Name: "slow", URL: srv.URL})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, defaultLimit, c.limit)
	assert.Equal(t, defaultTimeout, c.timeout)
	assert.Equal(t, defaultRetryAttempts, c.retryAttempts)
	assert.NotNil(t, c.httpClient)
}

func TestFlatten(t *testing.T) {
	items := gjson.Parse(`[[1,2],3,[]]`).Array()
	out := Flatten(items)
	require.Len(t, out, 3)
	assert.Equal(t, int64(3), out[2].Int())
}
