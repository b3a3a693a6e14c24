package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/AyuTriphasari/baget/internal/adapter"
	"github.com/AyuTriphasari/baget/internal/logging"
)

// handleGetUsers proxies bulk profile lookups to the social-graph API. The
// upstream key never reaches clients; the payload passes through untouched.
func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.lookupLimiter) {
		return
	}

	fidsParam := r.URL.Query().Get("fids")
	if fidsParam == "" {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "missing required parameter 'fids'", nil)
		return
	}

	fids := strings.Split(fidsParam, ",")
	if len(fids) > adapter.MaxFidsPerLookup {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT",
			"too many fids (max "+strconv.Itoa(adapter.MaxFidsPerLookup)+")", nil)
		return
	}
	for _, fid := range fids {
		if _, err := strconv.ParseUint(strings.TrimSpace(fid), 10, 64); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_INPUT", "fids must be positive integers", nil)
			return
		}
	}

	body, statusCode, err := s.userLookup.UsersBulkRaw(r.Context(), fidsParam)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("profile proxy lookup failed")
		if statusCode == 0 || statusCode == http.StatusOK {
			statusCode = http.StatusBadGateway
		}
		respondError(w, statusCode, "PROFILE_LOOKUP_FAILED", "profile lookup failed", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
