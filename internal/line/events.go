package line

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Event is one entry of a webhook callback. The set of implementations is
// closed: TextMessage and Unsupported.
type Event interface {
	EventID() string
	isEvent()
}

// TextMessage is a plain-text message sent by a user.
type TextMessage struct {
	WebhookEventID string
	ReplyToken     string
	Text           string
}

// Unsupported is any event this bridge does not answer (stickers, follows,
// postbacks, ...).
type Unsupported struct {
	WebhookEventID string
	Type           string
}

func (e TextMessage) EventID() string { return e.WebhookEventID }
func (e Unsupported) EventID() string { return e.WebhookEventID }

func (TextMessage) isEvent() {}
func (Unsupported) isEvent() {}

// ParseEvents decodes a verified callback body.
func ParseEvents(body []byte) ([]Event, error) {
	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}

	// Every event type carries webhookEventId, but the SDK structs share no
	// accessor for it.
	var ids struct {
		Events []struct {
			WebhookEventID string `json:"webhookEventId"`
		} `json:"events"`
	}
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("decode event ids: %w", err)
	}

	events := make([]Event, 0, len(cb.Events))
	for i, ev := range cb.Events {
		switch e := ev.(type) {
		case webhook.MessageEvent:
			if msg, ok := e.Message.(webhook.TextMessageContent); ok {
				events = append(events, TextMessage{
					WebhookEventID: e.WebhookEventId,
					ReplyToken:     e.ReplyToken,
					Text:           msg.Text,
				})
				continue
			}
			events = append(events, Unsupported{
				WebhookEventID: e.WebhookEventId,
				Type:           "message/" + typeName(e.Message),
			})
		default:
			var id string
			if i < len(ids.Events) {
				id = ids.Events[i].WebhookEventID
			}
			events = append(events, Unsupported{WebhookEventID: id, Type: typeName(ev)})
		}
	}
	return events, nil
}

// typeName turns webhook.StickerMessageContent into "StickerMessageContent".
func typeName(v any) string {
	name := fmt.Sprintf("%T", v)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
