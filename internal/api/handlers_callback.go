package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/shohag/linegemini/internal/bridge"
)

const maxCallbackSize = 1 << 20 // 1MB

type CallbackHandler struct {
	webhook Webhooker
	log     zerolog.Logger
}

func NewCallbackHandler(webhook Webhooker, log zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{webhook: webhook, log: log}
}

func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCallbackSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	// The invocation runs to completion even if the caller disconnects.
	resp, err := h.webhook.Handle(context.WithoutCancel(r.Context()), bridge.Request{Header: r.Header, Body: body})
	if err != nil {
		h.log.Error().Err(err).Msg("webhook handler failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeRaw(w, resp.StatusCode, resp.Body)
}
