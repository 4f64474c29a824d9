package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const chatWindow = 10 * time.Second

// ChatNotifier tells the remote chat service about messages removed
// alongside a deleted session. Notification is best-effort.
type ChatNotifier interface {
	MessagesRemoved(ctx context.Context, remoteIDs []string) error
}

type httpChatNotifier struct {
	baseURL string
	client  *http.Client
}

func newHTTPChatNotifier(baseURL string) *httpChatNotifier {
	return &httpChatNotifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *httpChatNotifier) MessagesRemoved(ctx context.Context, remoteIDs []string) error {
	body, err := json.Marshal(map[string]any{"messageIds": remoteIDs})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/internal/messages/removed", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("chat service responded %d", resp.StatusCode)
	}
	return nil
}

// purgeChatLogs deletes chat entries correlated to the session by task text
// and a ±10 second window around its start and completion timestamps, and
// returns the remote ids of what was removed.
func (a *API) purgeChatLogs(ctx context.Context, s sessionModel) ([]string, error) {
	if s.Task == "" {
		return nil, nil
	}

	orm := a.store.ORM.WithContext(ctx)

	query := orm.Model(&chatLogModel{}).
		Where("user_id = ? AND message = ?", s.UserID, s.Task)

	window := orm.
		Where("created_at BETWEEN ? AND ?", s.StartedAt.Add(-chatWindow), s.StartedAt.Add(chatWindow))
	if s.CompletedAt != nil {
		window = window.Or("created_at BETWEEN ? AND ?", s.CompletedAt.Add(-chatWindow), s.CompletedAt.Add(chatWindow))
	}
	query = query.Where(window)

	var logs []chatLogModel
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(logs))
	remoteIDs := make([]string, 0, len(logs))
	for _, entry := range logs {
		ids = append(ids, entry.ID)
		if entry.RemoteID != "" {
			remoteIDs = append(remoteIDs, entry.RemoteID)
		}
	}

	if err := orm.Delete(&chatLogModel{}, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	return remoteIDs, nil
}

// notifyChatRemoval fires the remote notification without letting a chat
// service outage fail the deletion.
func (a *API) notifyChatRemoval(ctx context.Context, remoteIDs []string) {
	if a.chat == nil || len(remoteIDs) == 0 {
		return
	}
	if err := a.chat.MessagesRemoved(ctx, remoteIDs); err != nil {
		a.log.Warn().Err(err).Int("messages", len(remoteIDs)).Msg("chat removal notification failed")
	}
}
