package api

import (
	"context"
	"fmt"

	"github.com/nhle/taskflow/internal/model"
)

// ListMessages fetches a team's full message history, oldest first.
func (c *Client) ListMessages(ctx context.Context, teamID string) ([]model.Message, error) {
	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	if err := c.get(ctx, fmt.Sprintf("/teams/%s/messages", teamID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendMessage posts a chat message to a team and returns the stored
// message, including its server-assigned id and timestamp.
func (c *Client) SendMessage(ctx context.Context, teamID, content string) (model.Message, error) {
	body := struct {
		Content string `json:"content"`
	}{Content: content}

	var resp struct {
		Message model.Message `json:"message"`
	}
	if err := c.post(ctx, fmt.Sprintf("/teams/%s/messages", teamID), body, &resp); err != nil {
		return model.Message{}, err
	}
	return resp.Message, nil
}
