package line

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Client sends reply messages through the Messaging API.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

// NewClient builds a client for the channel. endpoint overrides the API base
// URL and may be empty.
func NewClient(channelAccessToken, endpoint string) (*Client, error) {
	var opts []messaging_api.MessagingApiAPIOption
	if endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(endpoint))
	}

	api, err := messaging_api.NewMessagingApiAPI(channelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging api client: %w", err)
	}
	return &Client{api: api}, nil
}

// Reply answers the message identified by replyToken with a single text
// message. A rejection by the platform is returned as *ReplyError.
func (c *Client) Reply(replyToken, text string) error {
	res, _, err := c.api.ReplyMessageWithHttpInfo(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return newReplyError(res, err)
	}
	return nil
}

// ErrorDetail is one entry of the platform's "details" array.
type ErrorDetail struct {
	Message  string `json:"message"`
	Property string `json:"property"`
}

// ReplyError is a reply the platform refused.
type ReplyError struct {
	StatusCode int
	Message    string
	Details    []ErrorDetail
	Err        error
}

func (e *ReplyError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("reply failed: %v", e.Err)
	}
	return fmt.Sprintf("reply rejected (status %d): %s", e.StatusCode, e.Message)
}

func (e *ReplyError) Unwrap() error { return e.Err }

type errorBody struct {
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details"`
}

func newReplyError(res *http.Response, err error) *ReplyError {
	replyErr := &ReplyError{Message: err.Error(), Err: err}
	if res == nil {
		return replyErr
	}

	replyErr.StatusCode = res.StatusCode
	if res.Body == nil {
		return replyErr
	}
	defer res.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	if readErr != nil {
		return replyErr
	}
	decodeErrorBody(replyErr, raw)
	return replyErr
}

func decodeErrorBody(replyErr *ReplyError, raw []byte) {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		if s := strings.TrimSpace(string(raw)); s != "" {
			replyErr.Message = s
		}
		return
	}
	if body.Message != "" {
		replyErr.Message = body.Message
	}
	replyErr.Details = body.Details
}
