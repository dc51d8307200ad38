package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nuptia/admin/internal/couple"
	"github.com/nuptia/admin/internal/logging"
	"github.com/nuptia/admin/internal/metrics"
)

// createCoupleInput is the request body for the single-record create path.
// It mirrors the CSV columns; all fields arrive as strings.
type createCoupleInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Partner1Name string `json:"partner1_name"`
	Partner2Name string `json:"partner2_name"`
	WeddingDate  string `json:"wedding_date"`
	Budget       string `json:"budget"`
	VibeTags     string `json:"vibe_tags"`
	VenueName    string `json:"venue_name"`
	GuestCount   string `json:"guest_count"`
	VenueCity    string `json:"venue_city"`
	VenueState   string `json:"venue_state"`
}

// handleCreateCouple validates one user-entered record and submits a single
// creation request. Unlike bulk import, this path validates before sending:
// name and email are mandatory and the email must look deliverable. On
// backend failure the server-provided message is surfaced so the operator
// can correct the form and retry.
func (s *Server) handleCreateCouple(w http.ResponseWriter, r *http.Request) {
	var input createCoupleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)

	if name == "" || email == "" {
		writeError(w, http.StatusUnprocessableEntity, "name and email are required")
		return
	}
	if !couple.ValidEmail(email) {
		writeError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}

	row := couple.ImportRow{
		Name:         name,
		Email:        email,
		Phone:        input.Phone,
		Partner1Name: input.Partner1Name,
		Partner2Name: input.Partner2Name,
		WeddingDate:  input.WeddingDate,
		Budget:       input.Budget,
		VibeTags:     input.VibeTags,
		VenueName:    input.VenueName,
		GuestCount:   input.GuestCount,
		VenueCity:    input.VenueCity,
		VenueState:   input.VenueState,
	}

	if err := s.backend.CreateCouple(r.Context(), row.CreateRequest()); err != nil {
		logging.FromContext(r.Context()).Warn("single create failed",
			"email", email,
			"error", err,
		)
		metrics.SingleCreates.WithLabelValues("failed").Inc()
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	metrics.SingleCreates.WithLabelValues("created").Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"status":       "created",
		"notification": "Couple added",
	})
}
