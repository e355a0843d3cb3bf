package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/shohag/linegemini/internal/line"
	"github.com/shohag/linegemini/internal/models"
	"github.com/shohag/linegemini/internal/signing"
)

// Fixed response messages. Both are sent as JSON string literals.
const (
	RejectedMessage = "Only webhooks from the LINE Platform will accepted."
	AcceptedMessage = "Hello from Lambda!"
)

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Replier answers a message through its one-time reply token.
type Replier interface {
	Reply(replyToken, text string) error
}

// Recorder persists invocation outcomes.
type Recorder interface {
	RecordInvocation(ctx context.Context, inv *models.Invocation) error
}

// Request is one inbound webhook as handed over by the hosting runtime.
type Request struct {
	Header http.Header
	Body   []byte
}

// Response is what the hosting runtime sends back to the platform.
type Response struct {
	StatusCode int
	Body       string
}

type Handler struct {
	secret    string
	generator Generator
	replier   Replier
	recorder  Recorder
	log       zerolog.Logger
	now       func() time.Time
}

// New wires a handler. recorder may be nil.
func New(channelSecret string, generator Generator, replier Replier, recorder Recorder, log zerolog.Logger) *Handler {
	return &Handler{
		secret:    channelSecret,
		generator: generator,
		replier:   replier,
		recorder:  recorder,
		log:       log.With().Str("component", "bridge").Logger(),
		now:       time.Now,
	}
}

// Handle verifies and dispatches one webhook.
//
// Signature failures become a 400 response. A reply the platform refuses is
// logged and still answered with 200. Generation and payload failures are
// returned as an error for the hosting runtime to surface.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	start := h.now()
	h.log.Debug().Str("body", string(req.Body)).Msg("webhook received")

	summary, err := h.dispatch(ctx, req)

	inv := &models.Invocation{
		ID:             models.NewID("inv"),
		WebhookEventID: summary.firstEventID,
		EventCount:     summary.events,
		CreatedAt:      start.UTC(),
	}
	defer func() {
		inv.LatencyMs = h.now().Sub(start).Milliseconds()
		h.record(ctx, inv)
	}()

	if err == nil {
		inv.Outcome = models.OutcomeReplied
		if summary.replied == 0 {
			inv.Outcome = models.OutcomeIgnored
		}
		return jsonResponse(http.StatusOK, AcceptedMessage), nil
	}

	var dispatchErr *Error
	if !errors.As(err, &dispatchErr) {
		dispatchErr = &Error{Kind: KindPayload, Err: err}
	}

	switch dispatchErr.Kind {
	case KindInvalidSignature:
		inv.Outcome = models.OutcomeRejected
		h.log.Warn().Msg("webhook signature verification failed")
		return jsonResponse(http.StatusBadRequest, RejectedMessage), nil

	case KindReplySend:
		// Acknowledged with 200 even though the reply was not delivered.
		inv.Outcome = models.OutcomeReplyFailed
		h.logReplyFailure(dispatchErr.Err)
		return jsonResponse(http.StatusOK, AcceptedMessage), nil

	case KindGeneration:
		inv.Outcome = models.OutcomeGenerationFailed
		return Response{}, dispatchErr

	default:
		return Response{}, dispatchErr
	}
}

type dispatchSummary struct {
	events       int
	replied      int
	firstEventID string
}

func (h *Handler) dispatch(ctx context.Context, req Request) (dispatchSummary, error) {
	var summary dispatchSummary

	signature := req.Header.Get(signing.HeaderName)
	if !signing.Verify(h.secret, req.Body, signature) {
		return summary, &Error{Kind: KindInvalidSignature}
	}

	events, err := line.ParseEvents(req.Body)
	if err != nil {
		return summary, &Error{Kind: KindPayload, Err: err}
	}
	summary.events = len(events)
	if len(events) > 0 {
		summary.firstEventID = events[0].EventID()
	}

	for _, ev := range events {
		switch e := ev.(type) {
		case line.TextMessage:
			if err := h.answer(ctx, e); err != nil {
				return summary, err
			}
			summary.replied++
		case line.Unsupported:
			h.log.Debug().
				Str("webhook_event_id", e.WebhookEventID).
				Str("type", e.Type).
				Msg("skipping unsupported event")
		}
	}

	return summary, nil
}

func (h *Handler) answer(ctx context.Context, msg line.TextMessage) error {
	answer, err := h.generator.Generate(ctx, msg.Text)
	if err != nil {
		return &Error{Kind: KindGeneration, Err: err}
	}

	h.log.Info().
		Str("webhook_event_id", msg.WebhookEventID).
		Str("answer", answer).
		Msg("answer generated")

	if err := h.replier.Reply(msg.ReplyToken, answer); err != nil {
		return &Error{Kind: KindReplySend, Err: err}
	}
	return nil
}

// logReplyFailure writes one line for the failure and one per detail entry.
func (h *Handler) logReplyFailure(err error) {
	var replyErr *line.ReplyError
	if !errors.As(err, &replyErr) {
		h.log.Error().Err(err).Msg("Got exception from LINE Messaging API")
		return
	}

	h.log.Error().
		Int("status", replyErr.StatusCode).
		Str("error_message", replyErr.Message).
		Msg("Got exception from LINE Messaging API")
	for _, d := range replyErr.Details {
		h.log.Error().
			Str("property", d.Property).
			Str("detail", d.Message).
			Msg("LINE Messaging API error detail")
	}
}

func (h *Handler) record(ctx context.Context, inv *models.Invocation) {
	if h.recorder == nil || inv.Outcome == "" {
		return
	}
	if err := h.recorder.RecordInvocation(context.WithoutCancel(ctx), inv); err != nil {
		h.log.Warn().Err(err).Str("outcome", string(inv.Outcome)).Msg("failed to record invocation")
	}
}

func jsonResponse(status int, message string) Response {
	body, _ := json.Marshal(message)
	return Response{StatusCode: status, Body: string(body)}
}
