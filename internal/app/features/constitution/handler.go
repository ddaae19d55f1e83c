// internal/app/features/constitution/handler.go
package constitution

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/genai"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.uber.org/zap"
)

// Drafter writes one constitution section. *genai.Client implements it.
type Drafter interface {
	DraftSection(ctx context.Context, in models.ConstitutionSectionInput) (models.ConstitutionSection, error)
}

// Handler serves the constitution builder. Drafter is nil when no model is
// configured; requests then get 503.
type Handler struct {
	Drafter Drafter
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(d Drafter, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Drafter: d, ErrLog: errLog, Log: logger}
}

// HandleDraft handles POST /constitution/sections.
func (h *Handler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}
	if h.Drafter == nil {
		uierrors.Write(w, http.StatusServiceUnavailable, "The constitution builder is not available.")
		return
	}

	var in models.ConstitutionSectionInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		uierrors.BadRequest(w, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	section, err := h.Drafter.DraftSection(ctx, in)
	var invalid *genai.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		uierrors.BadRequest(w, invalid.Message)
		return
	case errors.Is(err, genai.ErrNotConfigured):
		uierrors.Write(w, http.StatusServiceUnavailable, "The constitution builder is not available.")
		return
	case err != nil:
		h.ErrLog.LogBadGateway(w, r, "draft section failed", err, "Unable to generate the section. Please try again.")
		return
	}

	h.Log.Info("constitution section drafted",
		zap.String("user_id", viewer.ID.Hex()),
		zap.String("section_type", in.SectionType))
	uierrors.WriteJSON(w, http.StatusOK, section)
}
