package telegram

import (
	"context"
	"encoding/json"
	"fmt"
)

// SetWebhook registers url as the bot's webhook endpoint.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	params := map[string]any{"url": url}
	if _, err := c.Call(ctx, "setWebhook", params); err != nil {
		return err
	}
	return nil
}

// DeleteWebhook removes any existing webhook registration.
func (c *Client) DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error {
	params := map[string]any{"drop_pending_updates": dropPendingUpdates}
	if _, err := c.Call(ctx, "deleteWebhook", params); err != nil {
		return err
	}
	return nil
}

// GetWebhookInfo returns the current webhook registration state.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	result, err := c.Call(ctx, "getWebhookInfo", nil)
	if err != nil {
		return nil, err
	}
	var info WebhookInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("decode webhook info: %w", err)
	}
	return &info, nil
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	result, err := c.Call(ctx, "sendMessage", params)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(result, &msg); err != nil {
		return nil, fmt.Errorf("decode sent message: %w", err)
	}
	return &msg, nil
}

// AnswerCallbackQuery acknowledges a callback query, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string) error {
	params := map[string]any{"callback_query_id": queryID}
	if text != "" {
		params["text"] = text
	}
	if _, err := c.Call(ctx, "answerCallbackQuery", params); err != nil {
		return err
	}
	return nil
}
