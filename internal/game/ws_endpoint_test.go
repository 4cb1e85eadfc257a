package game

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/stuckem/internal/dependencies/mocks"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *TableService) {
	t.Helper()
	tables := NewTableService(TableConfig{
		Session:        Options{MaxNumber: 20},
		ConfirmTimeout: time.Second,
	}, NewInMemoryTableStore(), nil)
	t.Cleanup(tables.CloseAll)

	r := httprouter.New()
	NewServer(tables, "", nil).RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, tables
}

func readState(t *testing.T, ws *websocket.Conn) View {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		var env Envelope
		if json.Unmarshal(data, &env) != nil || env.Type != msgState {
			continue
		}
		var v View
		require.NoError(t, json.Unmarshal(env.Payload, &v))
		return v
	}
}

func TestWS_Endpoint_PathParam(t *testing.T) {
	ts, tables := newTestServer(t)
	tableID := tables.Create().ID()

	mkWSURL := func(path string) string {
		return "ws" + strings.TrimPrefix(ts.URL, "http") + path
	}

	cases := []struct {
		name     string
		urlPath  string
		wantCode int // 0 => expect success (101)
	}{
		{name: "success", urlPath: "/ws/" + tableID},
		{name: "success_ignores_query", urlPath: "/ws/" + tableID + "?table=wrong"},
		{name: "missing", urlPath: "/ws/", wantCode: http.StatusNotFound},
		{name: "extra_segment", urlPath: "/ws/" + tableID + "/x", wantCode: http.StatusNotFound},
		{name: "unknown_table", urlPath: "/ws/unknown", wantCode: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ws, resp, err := websocket.DefaultDialer.Dial(mkWSURL(tc.urlPath), nil)
			if tc.wantCode != 0 {
				require.Error(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, tc.wantCode, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			defer ws.Close()

			v := readState(t, ws)
			assert.Equal(t, StatusWaiting, v.Status)
			assert.Equal(t, 20, v.Settings.MaxNumber)
		})
	}
}

func TestWS_PlayBroadcasts(t *testing.T) {
	ts, tables := newTestServer(t)
	tableID := tables.Create().ID()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + tableID

	a, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer a.Close()
	b, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer b.Close()
	readState(t, a)
	readState(t, b)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"add_player","payload":{"name":"Alice"}}`)))
	for _, ws := range []*websocket.Conn{a, b} {
		v := readState(t, ws)
		require.Len(t, v.Players, 1)
		assert.Equal(t, "Alice", v.Players[0].Name)
	}

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := a.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, msgError, env.Type)
	assert.Contains(t, string(env.Payload), codeBadJSON)
}

func TestServer_TableAPI(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/tables", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		TableID string `json:"tableId"`
		URL     string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.TableID)
	assert.Equal(t, ts.URL+"/tables/"+created.TableID, created.URL)

	resp, err = http.Get(ts.URL + "/api/tables/" + created.TableID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "Setting up", v.StatusLabel)
	assert.Equal(t, "Exact Match", v.ModeLabel)

	resp, err = http.Get(ts.URL + "/api/tables/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/tables/" + created.TableID + "/qr.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestServer_PublicURL(t *testing.T) {
	s := NewServer(nil, "https://games.example/", nil)
	r := httptest.NewRequest(http.MethodPost, "/api/tables", nil)
	assert.Equal(t, "https://games.example/tables/x", s.tableURL(r, "x"))

	s = NewServer(nil, "", nil)
	r.Host = "lan:8080"
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://lan:8080/tables/x", s.tableURL(r, "x"))
}

func TestTableService_Reap(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := mocks.NewMockClock(t0)
	svc := NewTableService(TableConfig{
		Session:     Options{Clock: clk},
		IdleTimeout: time.Hour,
	}, NewInMemoryTableStore(), nil)
	defer svc.CloseAll()

	tb := svc.Create()
	got, ok := svc.Get(tb.ID())
	require.True(t, ok)
	assert.Same(t, tb, got)
	_, ok = svc.Get("")
	assert.False(t, ok)

	assert.Zero(t, svc.Reap(t0.Add(30*time.Minute)))
	assert.Equal(t, 1, svc.Reap(t0.Add(61*time.Minute)))

	_, ok = svc.Get(tb.ID())
	assert.False(t, ok)
}

func TestTableService_NoIdleTimeout(t *testing.T) {
	svc := NewTableService(TableConfig{}, NewInMemoryTableStore(), nil)
	defer svc.CloseAll()

	svc.Create()
	assert.Zero(t, svc.Reap(time.Now().Add(24*365*time.Hour)))
}
