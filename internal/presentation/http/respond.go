package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/froome/fulfillment/internal/auth"
	domorder "github.com/froome/fulfillment/internal/domain/order"
	dompayment "github.com/froome/fulfillment/internal/domain/payment"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	domuser "github.com/froome/fulfillment/internal/domain/user"
)

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps core sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domorder.ErrItemNotFound),
		errors.Is(err, domproduct.ErrNotFound),
		errors.Is(err, dompayment.ErrNotFound),
		errors.Is(err, domuser.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domorder.ErrInvalidQuantity),
		errors.Is(err, domproduct.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domorder.ErrNotModifiable),
		errors.Is(err, dompayment.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domproduct.ErrInsufficientStock),
		errors.Is(err, domorder.ErrConflict),
		errors.Is(err, dompayment.ErrDuplicate),
		errors.Is(err, domuser.ErrEmailInUse),
		errors.Is(err, domuser.ErrUsernameInUse):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
