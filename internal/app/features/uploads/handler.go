// internal/app/features/uploads/handler.go
package uploads

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	"github.com/clanforge/clanhub/internal/app/system/authz"
	"github.com/clanforge/clanhub/internal/app/system/filestore"
	"github.com/clanforge/clanhub/internal/app/system/limits"
	"github.com/clanforge/clanhub/internal/app/system/sniff"
	"github.com/clanforge/clanhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler stores images and videos for chat messages, shorts and posts.
// Clients upload first and then send the returned URL.
type Handler struct {
	Files  filestore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(files filestore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Files: files, ErrLog: errLog, Log: logger}
}

// HandleUpload handles POST /uploads with a multipart "file" field and
// responds with the stored file's URL.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	viewer, ok := authz.ViewerFrom(r)
	if !ok {
		uierrors.Unauthorized(w, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxMediaSize+limits.MaxMultipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			uierrors.Write(w, http.StatusRequestEntityTooLarge, "File is too large.")
			return
		}
		uierrors.BadRequest(w, "A file is required.")
		return
	}
	defer file.Close()

	contentType, body, err := sniff.Detect(file)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "read upload failed", err, "Unable to read the file.")
		return
	}
	if !sniff.IsImage(contentType) && !sniff.IsVideo(contentType) {
		uierrors.BadRequest(w, "Only images and videos can be uploaded.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	up, err := filestore.Save(ctx, h.Files, "media", header.Filename, body, header.Size, contentType)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "store upload failed", err, "Unable to store the file.")
		return
	}
	h.Log.Info("media uploaded",
		zap.String("user_id", viewer.ID.Hex()),
		zap.String("key", up.Key),
		zap.String("content_type", contentType))
	uierrors.WriteJSON(w, http.StatusCreated, up)
}
