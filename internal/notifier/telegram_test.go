package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.BaseURL = srv.URL
	tn.RetryBase = 10 * time.Millisecond
	return tn
}

func TestTelegramNotifier_Send(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "<b>hi</b>", got.Text)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Zero(t, got.ReplyToMessageID)
}

func TestTelegramNotifier_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad chat", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestNotifier(srv).Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "bad chat")
}

func TestTelegramNotifier_NotOKEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was kicked"}`))
	}))
	defer srv.Close()

	err := newTestNotifier(srv).Send(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "sendMessage", apiErr.Method)
	assert.Equal(t, "Forbidden: bot was kicked", apiErr.Description)
}

func TestTelegramNotifier_SendWithRetryRecovers(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv).SendWithRetry(context.Background(), "x", 2))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestTelegramNotifier_SendWithRetryStopsOnRejection(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := newTestNotifier(srv).SendWithRetry(context.Background(), "x", 3)
	assert.ErrorContains(t, err, "chat not found")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestTelegramNotifier_SendWithRetryHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":30}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := newTestNotifier(srv).SendWithRetry(ctx, "x", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTelegramNotifier_SendSplitsLongReports(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		texts = append(texts, req.Text)
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	line := strings.Repeat("x", 99) + "\n"
	report := strings.Repeat(line, 50)
	require.NoError(t, newTestNotifier(srv).Send(context.Background(), report))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, texts, 2)
	assert.Len(t, texts[0], 40*len(line)-1)
	assert.Equal(t, report, texts[0]+"\n"+texts[1])
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	parts := splitMessage(strings.Repeat("é", 5), 4)
	assert.Equal(t, []string{"éé", "éé", "é"}, parts)
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
}

func TestTelegramNotifier_SetCommands(t *testing.T) {
	var got struct {
		Commands []BotCommand `json:"commands"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/setMyCommands", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	cmds := []BotCommand{{Command: "pool", Description: "Pool totals"}}
	require.NoError(t, newTestNotifier(srv).SetCommands(context.Background(), cmds))
	assert.Equal(t, cmds, got.Commands)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{" /pool ", "/pool", true},
		{"/Account@PoolBot  alice", "/account alice", true},
		{"/history@PoolBot", "/history", true},
		{"hello /pool", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseCommand(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTelegramNotifier_PollingAnswersConfiguredChat(t *testing.T) {
	var mu sync.Mutex
	var replies []sendMessageRequest
	var commands []string
	polls := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			var req getUpdatesRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"message"}, req.AllowedUpdates)
			polls++
			if polls == 1 {
				assert.Equal(t, 0, req.Offset)
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":7,"message":{"message_id":70,"text":" /pool@PoolBot ","chat":{"id":42}}},
					{"update_id":8},
					{"update_id":9,"message":{"message_id":90,"text":"/report","chat":{"id":13}}},
					{"update_id":10,"message":{"message_id":100,"text":"gm","chat":{"id":42}}}
				]}`))
				return
			}
			assert.Equal(t, 11, req.Offset)
			cancel()
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/botTOKEN/sendMessage":
			var body sendMessageRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			replies = append(replies, body)
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		newTestNotifier(srv).StartPolling(ctx, func(cmd string) string {
			mu.Lock()
			commands = append(commands, cmd)
			mu.Unlock()
			return "echo " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/pool"}, commands)
	require.Len(t, replies, 1)
	assert.Equal(t, "echo /pool", replies[0].Text)
	assert.Equal(t, 70, replies[0].ReplyToMessageID)
	assert.Equal(t, "42", replies[0].ChatID)
}

func TestTelegramNotifier_PollingRetriesAfterFailure(t *testing.T) {
	prev := pollRetryDelay
	pollRetryDelay = 10 * time.Millisecond
	defer func() { pollRetryDelay = prev }()

	var mu sync.Mutex
	polls := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		polls++
		if polls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		cancel()
		w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		newTestNotifier(srv).StartPolling(ctx, func(string) string { return "" })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, polls)
}
