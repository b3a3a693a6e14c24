package api

import (
	"context"
	"net/http"

	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/retry"
	"github.com/AyuTriphasari/baget/internal/service"
)

// handleSignClaim issues a claim authorization signature.
func (s *Server) handleSignClaim(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.claimLimiter) {
		return
	}

	var req service.SignRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error(), nil)
		return
	}

	resp, err := s.signer.Sign(r.Context(), &req)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("claim authorization rejected")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleRecordClaim records a confirmed claim in the winner ledger. The
// receipt may trail the client's confirmation, so transient chain failures
// are retried before giving up.
func (s *Server) handleRecordClaim(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.claimLimiter) {
		return
	}

	var req service.RecordRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error(), nil)
		return
	}

	config := retry.DefaultConfig()
	config.Retryable = apperrors.IsRetryable

	var winner *models.Winner
	err := retry.Do(r.Context(), config, func(ctx context.Context, attempt int) error {
		var recordErr error
		winner, recordErr = s.recorder.RecordClaim(ctx, &req)
		return recordErr
	})
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("claim recording failed")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, winner)
}
