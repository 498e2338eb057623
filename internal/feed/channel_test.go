package feed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

var upgrader = websocket.Upgrader{}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect() (func(Event), chan Event) {
	ch := make(chan Event, 64)
	return func(ev Event) { ch <- ev }, ch
}

func waitFor(t *testing.T, ch chan Event, typ EventType) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event type %d", typ)
		}
	}
}

func TestChannel_SnapshotWholesaleReplace(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{
			"success": true,
			"orders":  []map[string]any{{"_id": "o1", "number": 1, "status": "created"}},
			"total":   10, "totalToday": 2,
		})
		_ = conn.WriteJSON(map[string]any{
			"success": true,
			"orders":  []map[string]any{{"_id": "o2", "number": 2, "status": "done"}},
			"total":   11, "totalToday": 3,
		})
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{RetryBase: 5 * time.Millisecond})
	c.Connect("")
	defer c.Disconnect()

	waitFor(t, events, EventConnected)
	first := waitFor(t, events, EventSnapshot)
	if first.Snapshot.Total != 10 || len(first.Snapshot.Orders) != 1 || first.Snapshot.Orders[0].ID != "o1" {
		t.Fatalf("first snapshot = %+v", first.Snapshot)
	}
	second := waitFor(t, events, EventSnapshot)
	if second.Snapshot.Total != 11 || len(second.Snapshot.Orders) != 1 || second.Snapshot.Orders[0].ID != "o2" {
		t.Fatalf("second snapshot must replace the first wholesale: %+v", second.Snapshot)
	}

	st := c.State()
	if !st.Connected || st.Snapshot.TotalToday != 3 {
		t.Fatalf("state = %+v", st)
	}
}

func TestChannel_ErrorFrameLeavesSnapshotUntouched(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{
			"success": true,
			"orders":  []map[string]any{{"_id": "o1", "number": 1}},
			"total":   5, "totalToday": 1,
		})
		_ = conn.WriteJSON(map[string]any{"success": false, "message": "Invalid or missing token"})
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{})
	c.Connect("")
	defer c.Disconnect()

	waitFor(t, events, EventSnapshot)
	errEv := waitFor(t, events, EventError)
	if errEv.Message != "Invalid or missing token" {
		t.Fatalf("error message = %q", errEv.Message)
	}

	st := c.State()
	if st.Snapshot.Total != 5 || len(st.Snapshot.Orders) != 1 {
		t.Fatalf("error frame must not touch existing data: %+v", st.Snapshot)
	}
	if st.Err != "Invalid or missing token" {
		t.Fatalf("state error = %q", st.Err)
	}
}

func TestChannel_AbnormalCloses_BoundedExponentialRetry(t *testing.T) {
	t.Parallel()
	var upgrades atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgrades.Add(1)
		// Drop the connection without a close handshake.
		conn.Close()
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{RetryBase: 5 * time.Millisecond, MaxRetries: 3})
	c.Connect("")

	var terminal Event
	deadline := time.After(3 * time.Second)
loop:
	for {
		select {
		case ev := <-events:
			if ev.Type == EventError && ev.Terminal {
				terminal = ev
				break loop
			}
		case <-deadline:
			t.Fatalf("no terminal error after exhausting retries")
		}
	}
	if terminal.Message == "" {
		t.Fatalf("terminal error must carry a message")
	}

	// Initial attempt plus exactly three retries.
	if got := upgrades.Load(); got != 4 {
		t.Fatalf("connection attempts = %d, want 4", got)
	}
	time.Sleep(100 * time.Millisecond)
	if got := upgrades.Load(); got != 4 {
		t.Fatalf("channel kept retrying after giving up: %d attempts", got)
	}
}

func TestChannel_RetryBudgetResetsOnLiveConnection(t *testing.T) {
	t.Parallel()
	var upgrades atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgrades.Add(1)
		// Prove the connection live with one frame, then drop it without
		// a close handshake.
		_ = conn.WriteJSON(map[string]any{"success": true, "orders": []any{}, "total": 1, "totalToday": 1})
		time.Sleep(10 * time.Millisecond)
		conn.Close()
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{RetryBase: 5 * time.Millisecond, MaxRetries: 3})
	c.Connect("")

	// Each connection delivers a frame before dying, so the retry budget
	// refills every time and the channel must outlive maxRetries drops.
	deadline := time.After(3 * time.Second)
	for upgrades.Load() < 6 {
		select {
		case ev := <-events:
			if ev.Type == EventError && ev.Terminal {
				t.Fatalf("terminal error despite live connections, after %d upgrades", upgrades.Load())
			}
		case <-deadline:
			t.Fatalf("only %d upgrades, want the channel to keep reconnecting", upgrades.Load())
		}
	}
	c.Disconnect()
}

func TestChannel_DisconnectDuringDialAbandonsSocket(t *testing.T) {
	t.Parallel()
	dialing := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(dialing)
		<-release
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{RetryBase: 5 * time.Millisecond})
	c.Connect("")

	<-dialing
	c.Disconnect()
	close(release)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %d after Disconnect mid-dial", ev.Type)
	case <-time.After(200 * time.Millisecond):
	}
	if st := c.State(); st.Connected {
		t.Fatalf("channel connected after Disconnect")
	}
}

func TestChannel_CleanServerCloseDoesNotRetry(t *testing.T) {
	t.Parallel()
	var upgrades atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgrades.Add(1)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		// Wait for the client's close echo before tearing down.
		_, _, _ = conn.ReadMessage()
		conn.Close()
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{RetryBase: 5 * time.Millisecond})
	c.Connect("")

	waitFor(t, events, EventConnected)
	waitFor(t, events, EventDisconnected)
	time.Sleep(100 * time.Millisecond)
	if got := upgrades.Load(); got != 1 {
		t.Fatalf("clean close must not reconnect, attempts = %d", got)
	}
}

func TestChannel_DisconnectSuppressesReconnect(t *testing.T) {
	t.Parallel()
	var upgrades atomic.Int32
	sawClean := make(chan bool, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgrades.Add(1)
		_, _, rerr := conn.ReadMessage()
		sawClean <- websocket.IsCloseError(rerr, websocket.CloseNormalClosure)
		conn.Close()
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{RetryBase: 5 * time.Millisecond})
	c.Connect("")
	waitFor(t, events, EventConnected)

	c.Disconnect()
	waitFor(t, events, EventDisconnected)

	select {
	case clean := <-sawClean:
		if !clean {
			t.Fatalf("disconnect must use the clean-close code")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never observed the close")
	}

	time.Sleep(100 * time.Millisecond)
	if got := upgrades.Load(); got != 1 {
		t.Fatalf("disconnect must suppress reconnects, attempts = %d", got)
	}
	if st := c.State(); st.Connected {
		t.Fatalf("state still connected after Disconnect")
	}
}

func TestChannel_ConnectIsIdempotent(t *testing.T) {
	t.Parallel()
	var upgrades atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgrades.Add(1)
		time.Sleep(time.Second)
		conn.Close()
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{})
	c.Connect("")
	c.Connect("")
	waitFor(t, events, EventConnected)
	c.Connect("")
	defer c.Disconnect()

	time.Sleep(100 * time.Millisecond)
	if got := upgrades.Load(); got != 1 {
		t.Fatalf("repeated Connect opened %d sockets, want 1", got)
	}
}

func TestChannel_TokenPassedAsQueryCredential(t *testing.T) {
	t.Parallel()
	gotToken := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken <- r.URL.Query().Get("token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		time.Sleep(time.Second)
		conn.Close()
	}))
	defer srv.Close()

	handler, events := collect()
	c := New(wsURL(srv), handler, Options{})
	c.Connect("acc-123")
	defer c.Disconnect()
	waitFor(t, events, EventConnected)

	if tok := <-gotToken; tok != "acc-123" {
		t.Fatalf("token query = %q, want acc-123", tok)
	}
}

func TestChannel_StateSnapshotIsACopy(t *testing.T) {
	t.Parallel()
	c := New("ws://unused", nil, Options{})
	c.snapshot = model.FeedSnapshot{Orders: []model.Order{{ID: "o1"}}, Total: 1}

	st := c.State()
	st.Snapshot.Orders[0].ID = "mutated"
	if c.snapshot.Orders[0].ID != "o1" {
		t.Fatalf("State must return a copy of the order list")
	}
}
