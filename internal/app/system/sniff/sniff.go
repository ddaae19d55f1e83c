// Package sniff detects the real type of an uploaded file from its
// content rather than from the name or the client's header.
package sniff

import (
	"bytes"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// headLen matches mimetype's default read limit.
const headLen = 3072

// Detect reads the head of r and returns the detected MIME type (without
// parameters) and a reader that still yields the whole stream.
func Detect(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, headLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = head[:n]
	ct := mimetype.Detect(head).String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct, io.MultiReader(bytes.NewReader(head), r), nil
}

// IsImage reports whether ct is an image type.
func IsImage(ct string) bool { return strings.HasPrefix(ct, "image/") }

// IsVideo reports whether ct is a video type.
func IsVideo(ct string) bool { return strings.HasPrefix(ct, "video/") }
