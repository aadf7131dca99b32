package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultBaseURL is the public Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// maxMessageLen is the Bot API limit for a single message text.
const maxMessageLen = 4096

// APIError is a failed Bot API call.
type APIError struct {
	Method      string
	Status      int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: status %d, body: %s", e.Method, e.Status, e.Description)
}

// temporary reports whether the call may succeed if repeated.
func (e *APIError) temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// BotCommand is an entry of the bot's command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// TelegramNotifier delivers pool reports and ledger events to one chat and
// answers pool queries from that chat.
type TelegramNotifier struct {
	BaseURL  string
	BotToken string
	ChatID   string
	Client   *http.Client
	// RetryBase is the first backoff delay of SendWithRetry; it doubles per attempt.
	RetryBase time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BaseURL:   DefaultBaseURL,
		BotToken:  botToken,
		ChatID:    chatID,
		Client:    &http.Client{Timeout: 30 * time.Second, Transport: transport},
		RetryBase: time.Second,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// call invokes a Bot API method and decodes its result into out.
func (t *TelegramNotifier) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	apiURL := fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope apiResponse
	decodeErr := json.Unmarshal(raw, &envelope)
	if resp.StatusCode != http.StatusOK || decodeErr != nil || !envelope.OK {
		apiErr := &APIError{Method: method, Status: resp.StatusCode, Description: envelope.Description}
		if apiErr.Description == "" {
			apiErr.Description = strings.TrimSpace(string(raw))
		}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

type sendMessageRequest struct {
	ChatID           string `json:"chat_id"`
	Text             string `json:"text"`
	ParseMode        string `json:"parse_mode"`
	ReplyToMessageID int    `json:"reply_to_message_id,omitempty"`
}

// Send posts text to the configured chat, split into several messages when
// it exceeds the Bot API length limit.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	return t.sendText(ctx, text, 0)
}

func (t *TelegramNotifier) sendText(ctx context.Context, text string, replyTo int) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		req := sendMessageRequest{ChatID: t.ChatID, Text: part, ParseMode: "HTML", ReplyToMessageID: replyTo}
		if err := t.call(ctx, "sendMessage", req, nil); err != nil {
			return err
		}
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry. Rejections
// other than rate limiting and server errors are returned at once.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		lastErr = t.Send(ctx, text)
		if lastErr == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.temporary() {
			return lastErr
		}
		if i == maxRetries {
			break
		}
		backoff := t.RetryBase << uint(i)
		if apiErr != nil && apiErr.RetryAfter > backoff {
			backoff = apiErr.RetryAfter
		}
		log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, lastErr, backoff)
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// SetCommands publishes the command menu shown by Telegram clients.
func (t *TelegramNotifier) SetCommands(ctx context.Context, cmds []BotCommand) error {
	return t.call(ctx, "setMyCommands", struct {
		Commands []BotCommand `json:"commands"`
	}{cmds}, nil)
}

// splitMessage cuts text into chunks of at most limit bytes, preferring line
// breaks so formatted report lines stay whole.
func splitMessage(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	return append(parts, text)
}
