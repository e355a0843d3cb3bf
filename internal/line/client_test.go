package line

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyPayload struct {
	ReplyToken string `json:"replyToken"`
	Messages   []struct {
		Text string `json:"text"`
	} `json:"messages"`
}

func TestClientReply_Success(t *testing.T) {
	var got replyPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/bot/message/reply", r.URL.Path)
		assert.Equal(t, "Bearer channel-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"sentMessages":[{"id":"1","quoteToken":"q"}]}`)
	}))
	defer srv.Close()

	client, err := NewClient("channel-token", srv.URL)
	require.NoError(t, err)

	require.NoError(t, client.Reply("reply-token", "こんにちは"))
	assert.Equal(t, "reply-token", got.ReplyToken)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "こんにちは", got.Messages[0].Text)
}

func TestClientReply_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"The request body has 2 error(s)","details":[`+
			`{"message":"May not be empty","property":"messages[0].text"},`+
			`{"message":"Invalid reply token","property":"replyToken"}]}`)
	}))
	defer srv.Close()

	client, err := NewClient("channel-token", srv.URL)
	require.NoError(t, err)

	err = client.Reply("expired", "")
	require.Error(t, err)

	var replyErr *ReplyError
	require.True(t, errors.As(err, &replyErr))
	assert.Equal(t, http.StatusBadRequest, replyErr.StatusCode)
	assert.Len(t, replyErr.Details, 2)
	assert.Contains(t, replyErr.Error(), "status 400")
}

func TestDecodeErrorBody(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantMessage string
		wantDetails int
	}{
		{
			name:        "message only",
			raw:         `{"message":"Invalid reply token"}`,
			wantMessage: "Invalid reply token",
		},
		{
			name:        "with details",
			raw:         `{"message":"bad","details":[{"message":"a","property":"p1"},{"message":"b","property":"p2"},{"message":"c","property":"p3"}]}`,
			wantMessage: "bad",
			wantDetails: 3,
		},
		{
			name:        "not json",
			raw:         "upstream connect error",
			wantMessage: "upstream connect error",
		},
		{
			name:        "empty body keeps original message",
			raw:         "",
			wantMessage: "original",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replyErr := &ReplyError{Message: "original"}
			decodeErrorBody(replyErr, []byte(tt.raw))
			assert.Equal(t, tt.wantMessage, replyErr.Message)
			assert.Len(t, replyErr.Details, tt.wantDetails)
		})
	}
}

func TestNewReplyError_Transport(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	replyErr := newReplyError(nil, cause)

	assert.Zero(t, replyErr.StatusCode)
	assert.ErrorIs(t, replyErr, cause)
	assert.True(t, strings.HasPrefix(replyErr.Error(), "reply failed"))
}
