package api

import (
	"net/http"
	"strconv"

	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/service"
	"github.com/AyuTriphasari/baget/internal/storage"
)

// ListResponse wraps a page of giveaways with the cursor for the next page.
type ListResponse struct {
	Giveaways  []*models.Giveaway `json:"giveaways"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// respondListPage writes a page; a full page means there may be more, so the
// last id becomes the next cursor.
func respondListPage(w http.ResponseWriter, giveaways []*models.Giveaway, limit int) {
	resp := ListResponse{Giveaways: giveaways}
	if limit > 0 && len(giveaways) == limit {
		resp.NextCursor = giveaways[len(giveaways)-1].ID
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleRegisterGiveaway persists a giveaway after its creation transaction
// confirms.
func (s *Server) handleRegisterGiveaway(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error(), nil)
		return
	}

	giveaway, err := s.giveawayService.Register(r.Context(), &req)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("giveaway registration failed")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, giveaway)
}

// handleGetGiveaways serves three read shapes off one route: a single
// giveaway by id, a creator's giveaways, or the latest giveaways.
func (s *Server) handleGetGiveaways(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.lookupLimiter) {
		return
	}

	query := r.URL.Query()

	if id := query.Get("id"); id != "" {
		fresh := query.Get("fresh") == "1"
		view, err := s.giveawayService.Get(r.Context(), id, fresh)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
		return
	}

	// The repository clamps to MaxPageSize too; clamping here keeps the
	// full-page cursor decision in respondListPage consistent with what the
	// store actually returned.
	limit := storage.MaxPageSize
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < storage.MaxPageSize {
			limit = parsed
		}
	}

	if creator := query.Get("creator"); creator != "" {
		giveaways, err := s.giveawayService.ListByCreator(r.Context(), creator, query.Get("cursor"), limit)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondListPage(w, giveaways, limit)
		return
	}

	giveaways, err := s.giveawayService.ListLatest(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondListPage(w, giveaways, limit)
}
