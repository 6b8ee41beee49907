package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/forps/taskboard/pkg/logger"
)

// TransportError wraps a webhook delivery failure. Delivery problems are
// reported but never fail the operation that triggered them.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook delivery to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("webhook %s returned status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotificationService delivers digest messages to chat webhooks. The payload
// shape ({"content": ...}) is what Discord-compatible endpoints accept.
type NotificationService struct {
	client *http.Client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// webhook message bodies are capped by the receiving side; Discord's limit
// is 2000 characters.
const maxMessageLen = 2000

// SendMessage posts one text message to the webhook, splitting it into
// chunks when it exceeds the receiver's size cap.
func (s *NotificationService) SendMessage(webhookURL, message string) error {
	if webhookURL == "" {
		return &TransportError{URL: webhookURL, Err: fmt.Errorf("no webhook URL configured")}
	}

	for _, part := range splitMessage(message, maxMessageLen) {
		if err := s.postJSON(webhookURL, map[string]string{"content": part}); err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationService) postJSON(webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := s.client.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return &TransportError{URL: webhookURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		logger.Warn().
			Str("url", webhookURL).
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("webhook delivery rejected")
		return &TransportError{URL: webhookURL, StatusCode: resp.StatusCode}
	}
	return nil
}

func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var parts []string
	remaining := msg
	for len(remaining) > maxLen {
		cut := maxLen
		// prefer breaking on a line boundary
		found := false
		for i := maxLen - 1; i > maxLen/2; i-- {
			if remaining[i] == '\n' {
				cut = i
				found = true
				break
			}
		}
		// no newline in range: back off to a rune boundary so a
		// multi-byte character is never split across chunks
		if !found {
			for cut > 0 && !utf8.RuneStart(remaining[cut]) {
				cut--
			}
		}
		parts = append(parts, remaining[:cut])
		remaining = remaining[cut:]
		if len(remaining) > 0 && remaining[0] == '\n' {
			remaining = remaining[1:]
		}
	}
	if len(remaining) > 0 {
		parts = append(parts, remaining)
	}
	return parts
}
