package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flightwatch-service/internal/domain/repository"
	"flightwatch-service/pkg/logger"
)

// TelegramNotifier pushes messages to subscribers through the Telegram Bot
// API. The subscriber key is the chat ID the chat layer hands us.
type TelegramNotifier struct {
	logger     logger.Logger
	httpClient *http.Client
	baseURL    string
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(botToken string, logger logger.Logger) repository.Notifier {
	return &TelegramNotifier{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: fmt.Sprintf("https://api.telegram.org/bot%s", botToken),
	}
}

// Send delivers one message, best-effort. Callers log failures and move on
// to the next subscriber; nothing here retries.
func (r *TelegramNotifier) Send(ctx context.Context, subscriberKey, text string) error {
	body := map[string]interface{}{
		"chat_id": subscriberKey,
		"text":    text,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/sendMessage", r.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response struct {
		Ok          bool   `json:"ok"`
		ErrorCode   int    `json:"error_code"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !response.Ok {
		return fmt.Errorf("telegram returned error %d: %s", response.ErrorCode, response.Description)
	}

	r.logger.Debug("Notification delivered", "chat", subscriberKey)
	return nil
}
