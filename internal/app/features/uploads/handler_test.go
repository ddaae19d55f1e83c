package uploads_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	uierrors "github.com/clanforge/clanhub/internal/app/features/errors"
	"github.com/clanforge/clanhub/internal/app/features/uploads"
	"github.com/clanforge/clanhub/internal/app/system/filestore"
	"github.com/clanforge/clanhub/internal/testutil"
	"go.uber.org/zap"
)

var gif = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func multipartRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()
	req := httptest.NewRequest("POST", "/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload(t *testing.T) {
	root := t.TempDir()
	files, err := filestore.NewLocal(root, "/files")
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	h := uploads.NewHandler(files, uierrors.NewErrorLogger(logger), logger)
	user := testutil.MemberUser()

	t.Run("image stored", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleUpload(rec, testutil.WithUser(multipartRequest(t, "file", "frag.gif", gif), user))
		rec.AssertStatus(t, http.StatusCreated)
		var up filestore.Upload
		rec.DecodeJSON(t, &up)
		if !strings.HasPrefix(up.URL, "/files/media/") || up.ContentType != "image/gif" {
			t.Errorf("upload = %+v", up)
		}
		stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(up.Key)))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(stored, gif) {
			t.Error("stored bytes differ")
		}
	})

	t.Run("text rejected", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleUpload(rec, testutil.WithUser(multipartRequest(t, "file", "notes.gif", []byte("not an image")), user))
		rec.AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("missing file", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleUpload(rec, testutil.WithUser(multipartRequest(t, "", "", nil), user))
		rec.AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("visitor", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleUpload(rec, multipartRequest(t, "file", "frag.gif", gif))
		rec.AssertStatus(t, http.StatusUnauthorized)
	})
}
