package httpapi

import (
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/gorilla/mux"
)

func init() {
	_ = mime.AddExtensionType(".mp4", "video/mp4")
}

// handleAsset serves module files such as intro videos.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	f, err := s.assets.OpenAsset(vars["moduleId"], vars["file"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	var modTime time.Time
	if info, err := f.Stat(); err == nil {
		if info.IsDir() {
			http.NotFound(w, r)
			return
		}
		modTime = info.ModTime()
	}

	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, vars["file"], modTime, rs)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(vars["file"])); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = io.Copy(w, f)
}
