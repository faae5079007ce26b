package handlers

import (
	"net/http"

	appmol "github.com/turtacn/molscout/internal/application/molecule"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	ptypes "github.com/turtacn/molscout/pkg/types/molecule"
)

// MoleculeHandler serves the three molecule endpoints.
type MoleculeHandler struct {
	svc         appmol.Service
	logger      logging.Logger
	maxBodySize int64
}

// NewMoleculeHandler creates a MoleculeHandler. maxBodySize ≤ 0 means
// DefaultMaxBodySize.
func NewMoleculeHandler(svc appmol.Service, logger logging.Logger, maxBodySize int64) *MoleculeHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MoleculeHandler{svc: svc, logger: logger.Named("handler"), maxBodySize: maxBodySize}
}

// GenerateSimilar handles POST /generate_similar.
func (h *MoleculeHandler) GenerateSimilar(w http.ResponseWriter, r *http.Request) {
	var q ptypes.MoleculeQuery
	if err := decodeJSON(w, r, h.maxBodySize, &q); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	results, err := h.svc.GenerateSimilar(r.Context(), &q)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// SearchCommercial handles POST /search_commercial. The body is never read.
func (h *MoleculeHandler) SearchCommercial(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.SearchCommercial(r.Context(), nil)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// SearchPubChem handles POST /search_pubchem.
func (h *MoleculeHandler) SearchPubChem(w http.ResponseWriter, r *http.Request) {
	var q ptypes.MoleculeQuery
	if err := decodeJSON(w, r, h.maxBodySize, &q); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	results, err := h.svc.SearchPubChem(r.Context(), &q)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
