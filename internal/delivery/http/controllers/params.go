package controllers

import (
	"net/http"
	"regexp"
	"strings"

	"campushub/internal/delivery/http/helpers"
	"campushub/internal/delivery/http/middleware"
	"campushub/internal/domain"
)

// emailRegex matches a simple email format (local@domain with at least one dot in domain).
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// eventPath reads {clubID} and {eventID}. On failure it writes a 400 and returns false.
func eventPath(w http.ResponseWriter, r *http.Request) (clubID, eventID string, ok bool) {
	clubID = strings.TrimSpace(r.PathValue("clubID"))
	eventID = strings.TrimSpace(r.PathValue("eventID"))
	if clubID == "" || eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing clubID or eventID")
		return "", "", false
	}
	return clubID, eventID, true
}

// registrationPath reads the full registration address from the path.
func registrationPath(w http.ResponseWriter, r *http.Request) (domain.RegistrationRef, bool) {
	clubID, eventID, ok := eventPath(w, r)
	if !ok {
		return domain.RegistrationRef{}, false
	}
	partition, err := domain.ParsePartition(r.PathValue("partition"))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "partition must be member or guest")
		return domain.RegistrationRef{}, false
	}
	id := strings.TrimSpace(r.PathValue("registrationID"))
	if id == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrationID")
		return domain.RegistrationRef{}, false
	}
	return domain.RegistrationRef{ClubID: clubID, EventID: eventID, Partition: partition, ID: id}, true
}

// requireIdentity returns the caller or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
	}
	return id, ok
}
