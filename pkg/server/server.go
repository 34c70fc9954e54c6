// Package server exposes a FileSystem over HTTP
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alioygur/gores"
	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/christophe-duc/podfs/pkg/kubefs"
	"github.com/sirupsen/logrus"
)

// Server routes requests to a FileSystem. Every request names its own
// target through the namespace, pod and container query parameters.
type Server struct {
	Log *logrus.Entry
	FS  *kubefs.FileSystem

	mux *http.ServeMux
}

type ListResponse struct {
	Container string `json:"container"`
	*kubefs.Listing
}

type ChecksumResponse struct {
	Digest string `json:"digest"`
	Path   string `json:"path"`
	Raw    string `json:"raw"`
}

type UploadResponse struct {
	Path    string `json:"path"`
	Written int64  `json:"written"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func NewServer(log *logrus.Entry, fs *kubefs.FileSystem) *Server {
	s := &Server{Log: log, FS: fs, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /ls", s.handleList)
	s.mux.HandleFunc("POST /mv", s.handleMove)
	s.mux.HandleFunc("POST /rm", s.pathOp(fs.Remove))
	s.mux.HandleFunc("POST /mkdir", s.pathOp(fs.MakeDirectory))
	s.mux.HandleFunc("POST /touch", s.pathOp(fs.Touch))
	s.mux.HandleFunc("GET /md5sum", s.handleChecksum)
	s.mux.HandleFunc("GET /download", s.handleDownload)
	s.mux.HandleFunc("POST /upload", s.handleUpload)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done, then gives in-flight requests a
// few seconds to finish
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.Log.Infof("listening on %s", address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func target(r *http.Request) channel.Target {
	query := r.URL.Query()
	return channel.Target{
		Namespace: query.Get("namespace"),
		Pod:       query.Get("pod"),
		Container: query.Get("container"),
	}
}

// requirePath writes a 400 and returns false when the path parameter is missing
func requirePath(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		gores.Error(w, http.StatusBadRequest, "missing "+name)
		return "", false
	}
	return value, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.Log.WithField("url", r.URL.String()).Warnf("request failed: %v", err)
	gores.Error(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	dir, ok := requirePath(w, r, "path")
	if !ok {
		return
	}
	opts := kubefs.ListOptions{ShowHidden: r.URL.Query().Get("hidden") == "true"}

	containers := r.URL.Query()["container"]
	if len(containers) > 1 {
		t := target(r)
		listing, container, err := s.FS.ListFirst(r.Context(), t.Namespace, t.Pod, containers, dir, opts)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		gores.JSON(w, http.StatusOK, ListResponse{Container: container, Listing: listing})
		return
	}

	t := target(r)
	listing, err := s.FS.List(r.Context(), t, dir, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	gores.JSON(w, http.StatusOK, ListResponse{Container: t.Container, Listing: listing})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	from, ok := requirePath(w, r, "from")
	if !ok {
		return
	}
	to, ok := requirePath(w, r, "to")
	if !ok {
		return
	}

	if err := s.FS.Move(r.Context(), target(r), from, to); err != nil {
		s.fail(w, r, err)
		return
	}
	gores.JSON(w, http.StatusOK, OKResponse{OK: true})
}

// pathOp serves the operations that take nothing but a path
func (s *Server) pathOp(op func(ctx context.Context, target channel.Target, path string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requirePath(w, r, "path")
		if !ok {
			return
		}
		if err := op(r.Context(), target(r), p); err != nil {
			s.fail(w, r, err)
			return
		}
		gores.JSON(w, http.StatusOK, OKResponse{OK: true})
	}
}

func (s *Server) handleChecksum(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r, "path")
	if !ok {
		return
	}

	raw, err := s.FS.Checksum(r.Context(), target(r), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	digest, checkedPath, err := kubefs.ParseChecksum(raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	gores.JSON(w, http.StatusOK, ChecksumResponse{Digest: digest, Path: checkedPath, Raw: raw})
}

// lazyResponse holds back the status line until the first byte arrives, so
// that a download failing straight away can still be reported as an error
type lazyResponse struct {
	w       http.ResponseWriter
	name    string
	written bool
}

func (l *lazyResponse) Write(p []byte) (int, error) {
	if !l.written {
		l.written = true
		l.w.Header().Set("Content-Type", "application/octet-stream")
		l.w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(l.name, `"`, "")+`"`)
		l.w.WriteHeader(http.StatusOK)
	}
	return l.w.Write(p)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r, "path")
	if !ok {
		return
	}

	response := &lazyResponse{w: w, name: path.Base(p)}
	n, err := s.FS.Download(r.Context(), target(r), p, response)
	if err != nil {
		if !response.written {
			s.fail(w, r, err)
			return
		}
		// too late to change the status, the client sees a short body
		s.Log.Warnf("download of %s broke off after %d bytes: %v", p, n, err)
		return
	}
	if !response.written {
		response.Write(nil)
	}
}

// handleUpload streams each file part of a multipart form into the
// container. When path ends with a slash the part's file name is appended.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	dest, ok := requirePath(w, r, "path")
	if !ok {
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		gores.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	results := []UploadResponse{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			gores.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}

		remote := dest
		if strings.HasSuffix(dest, "/") {
			remote = dest + path.Base(part.FileName())
		}

		written, err := s.uploadPart(r.Context(), target(r), remote, part)
		part.Close()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		results = append(results, UploadResponse{Path: remote, Written: written})
	}

	if len(results) == 0 {
		gores.Error(w, http.StatusBadRequest, "no file in upload")
		return
	}
	gores.JSON(w, http.StatusOK, results)
}

func (s *Server) uploadPart(ctx context.Context, t channel.Target, remote string, part io.Reader) (int64, error) {
	pr, pw := io.Pipe()
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		_, err := io.Copy(pw, part)
		pw.CloseWithError(err)
	}()

	written, err := s.FS.Upload(ctx, t, remote, pr)
	// unblocks the copy if the upload gave up early
	pr.CloseWithError(io.ErrClosedPipe)
	<-copied
	return written, err
}
