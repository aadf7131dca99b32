package notifier

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

// pollTimeout is the long-poll wait; it stays below the HTTP client timeout.
const pollTimeout = 25

// pollRetryDelay is the pause after a failed getUpdates call.
var pollRetryDelay = 5 * time.Second

type update struct {
	UpdateID int      `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	MessageID int    `json:"message_id"`
	Text      string `json:"text"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type getUpdatesRequest struct {
	Offset         int      `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// StartPolling long-polls for bot commands sent to the configured chat and
// answers each with the handler's reply. Messages from other chats and plain
// text are dropped. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for {
		var updates []update
		req := getUpdatesRequest{Offset: offset, Timeout: pollTimeout, AllowedUpdates: []string{"message"}}
		if err := t.call(ctx, "getUpdates", req, &updates); err != nil {
			if ctx.Err() != nil {
				log.Println("[INFO] Telegram polling stopped")
				return
			}
			log.Printf("[WARN] polling request failed: %v", err)
			if !sleepCtx(ctx, pollRetryDelay) {
				return
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			if chat := strconv.FormatInt(u.Message.Chat.ID, 10); chat != t.ChatID {
				log.Printf("[WARN] ignoring message from chat %s", chat)
				continue
			}
			cmd, ok := parseCommand(u.Message.Text)
			if !ok {
				continue
			}
			log.Printf("[INFO] received command: %s", cmd)
			if reply := handler(cmd); reply != "" {
				if err := t.sendText(ctx, reply, u.Message.MessageID); err != nil {
					log.Printf("[ERROR] send reply: %v", err)
				}
			}
		}

		if ctx.Err() != nil {
			log.Println("[INFO] Telegram polling stopped")
			return
		}
	}
}

// parseCommand normalizes "/Account@PoolBot alice" to "/account alice".
func parseCommand(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	fields[0] = strings.ToLower(name)
	return strings.Join(fields, " "), true
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
