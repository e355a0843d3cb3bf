// Package awslambda runs the webhook handler behind API Gateway on AWS Lambda.
package awslambda

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/shohag/linegemini/internal/bridge"
)

type Webhooker interface {
	Handle(ctx context.Context, req bridge.Request) (bridge.Response, error)
}

type Handler struct {
	webhook Webhooker
	log     zerolog.Logger
}

func New(webhook Webhooker, log zerolog.Logger) *Handler {
	return &Handler{webhook: webhook, log: log.With().Str("component", "lambda").Logger()}
}

// Invoke converts a proxy event, runs the webhook handler and converts the
// result back. Errors from the handler are returned unchanged so Lambda
// reports the invocation as failed.
func (h *Handler) Invoke(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(ev.Body)
	if ev.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			return events.APIGatewayProxyResponse{}, fmt.Errorf("decode base64 body: %w", err)
		}
		body = decoded
	}

	resp, err := h.webhook.Handle(ctx, bridge.Request{Header: toHeader(ev), Body: body})
	if err != nil {
		h.log.Error().Err(err).Msg("webhook handler failed")
		return events.APIGatewayProxyResponse{}, err
	}

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}, nil
}

// Start hands control to the Lambda runtime. It does not return.
func (h *Handler) Start() {
	lambda.Start(h.Invoke)
}

// toHeader canonicalizes header names so lookups do not depend on the case
// the gateway delivered them in.
func toHeader(ev events.APIGatewayProxyRequest) http.Header {
	header := make(http.Header, len(ev.Headers)+len(ev.MultiValueHeaders))
	for k, vs := range ev.MultiValueHeaders {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	for k, v := range ev.Headers {
		if header.Get(k) == "" {
			header.Set(k, v)
		}
	}
	return header
}
