package services

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hungnqdz/exam-management/app/apperr"
)

// Upload is an uploaded file as received from the client. Every field other
// than the bytes behind Open is caller-controlled and untrusted.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadFromHeader adapts a multipart file header.
func UploadFromHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

type uploadKind struct {
	name  string
	types map[string]string // extension -> content type
	sniff func(head []byte, contentType string) bool
}

const (
	docxType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	odtType  = "application/vnd.oasis.opendocument.text"
)

var submissionUploads = uploadKind{
	name: "submission",
	types: map[string]string{
		".pdf":  "application/pdf",
		".docx": docxType,
		".odt":  odtType,
	},
	sniff: func(head []byte, contentType string) bool {
		if contentType == "application/pdf" {
			return bytes.HasPrefix(head, []byte("%PDF-"))
		}
		return bytes.HasPrefix(head, []byte("PK\x03\x04"))
	},
}

var avatarUploads = uploadKind{
	name: "avatar",
	types: map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".webp": "image/webp",
	},
	sniff: func(head []byte, contentType string) bool {
		return http.DetectContentType(head) == contentType
	},
}

// checked is an upload that passed validation.
type checked struct {
	Upload
	ext          string
	contentType  string
	originalName string
}

// validate checks extension, declared type, size and leading signature
// bytes. It reads at most 512 bytes and interprets nothing else.
func (k uploadKind) validate(up Upload, maxSize int64) (*checked, error) {
	if up.Open == nil || up.Filename == "" {
		return nil, apperr.Validation("Please choose a file to upload.")
	}
	original := originalName(up.Filename)
	ext := strings.ToLower(filepath.Ext(original))
	want, ok := k.types[ext]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("File type not allowed for %s uploads.", k.name))
	}
	declared, _, err := mime.ParseMediaType(up.ContentType)
	if err != nil || !strings.EqualFold(declared, want) {
		return nil, apperr.Validation("File content type does not match its extension.")
	}
	if up.Size <= 0 {
		return nil, apperr.Validation("The uploaded file is empty.")
	}
	if up.Size > maxSize {
		return nil, apperr.Validation(fmt.Sprintf("File exceeds the %d MB limit.", maxSize>>20))
	}

	f, err := up.Open()
	if err != nil {
		return nil, apperr.Validation("The uploaded file could not be read.")
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, apperr.Validation("The uploaded file could not be read.")
	}
	if !k.sniff(head[:n], want) {
		return nil, apperr.Validation("File content does not match its type.")
	}
	return &checked{Upload: up, ext: ext, contentType: want, originalName: original}, nil
}

// originalName keeps the base name only, for display.
func originalName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(filepath.Base(name))
	for len(name) > 255 {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// contentTypes is the only source of Content-Type for served files.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": docxType,
	".odt":  odtType,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".csv":  "text/csv; charset=utf-8",
}

// ContentTypeFor maps a stored name to its served content type.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
