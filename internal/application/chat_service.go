package application

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-realtime-relay/internal/domain/entity"
	repo "github.com/oksasatya/go-realtime-relay/internal/domain/repository"
)

// ErrEmptyMessage is returned for a message that is blank after trimming.
// The relay drops these without persistence or broadcast.
var ErrEmptyMessage = errors.New("empty message")

// ChatService accepts chat payloads: sanitize, persist, then hand back the
// canonical message for fan-out. Persist-before-broadcast is the hub's
// ordering guarantee; this service only ever returns messages that are
// already durable.
type ChatService struct {
	Messages repo.MessageRepository
	Logger   *logrus.Logger
	ES       *elasticsearch.Client
	ESMsgIdx string
}

func NewChatService(messages repo.MessageRepository, logger *logrus.Logger, es *elasticsearch.Client, esMsgIdx string) *ChatService {
	return &ChatService{Messages: messages, Logger: logger, ES: es, ESMsgIdx: esMsgIdx}
}

// Submit sanitizes and persists a chat message from a bound user.
func (s *ChatService) Submit(ctx context.Context, senderID, senderName, raw string) (*entity.ChatMessage, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	m := &entity.ChatMessage{
		SenderID:   senderID,
		SenderName: senderName,
		Body:       html.EscapeString(body),
	}
	if err := s.Messages.Insert(ctx, m); err != nil {
		return nil, err
	}
	// Index latest message to Elasticsearch, best effort
	_ = s.indexMessage(ctx, m)
	return m, nil
}

// Recent returns the replay window for a newly bound connection, oldest-first.
func (s *ChatService) Recent(ctx context.Context, limit int) ([]entity.ChatMessage, error) {
	return s.Messages.Recent(ctx, limit)
}

func (s *ChatService) indexMessage(ctx context.Context, m *entity.ChatMessage) error {
	if s.ES == nil || s.ESMsgIdx == "" {
		return nil
	}
	doc := map[string]any{
		"id":          m.ID,
		"sender_id":   m.SenderID,
		"sender_name": m.SenderName,
		"body":        m.Body,
		"created_at":  m.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESMsgIdx, DocumentID: m.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("message_id", m.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("message_id", m.ID).Warn("es index response error")
	}
	return nil
}

// Search performs a simple match query on message bodies and sender names.
// Operator-facing; the relay's own history replay does not use it.
func (s *ChatService) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESMsgIdx == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"body^2", "sender_name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESMsgIdx), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
