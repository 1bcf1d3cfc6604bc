package http

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/cmlabs-hris/homecare-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// SignedFileStore is local storage that issued the signed URLs being served.
type SignedFileStore interface {
	Verify(path, expires, signature string) error
	Open(path string) (*os.File, error)
}

type FileHandler interface {
	Serve(w http.ResponseWriter, r *http.Request)
}

type fileHandlerImpl struct {
	store SignedFileStore
}

func NewFileHandler(store SignedFileStore) FileHandler {
	return &fileHandlerImpl{store: store}
}

// Serve streams a stored receipt after checking the URL signature.
func (h *fileHandlerImpl) Serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	q := r.URL.Query()

	if err := h.store.Verify(path, q.Get("expires"), q.Get("signature")); err != nil {
		if errors.Is(err, storage.ErrInvalidPath) {
			response.NotFound(w, "File not found")
			return
		}
		response.Forbidden(w, "Invalid or expired link")
		return
	}

	f, err := h.store.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.NotFound(w, "File not found")
			return
		}
		response.HandleError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
