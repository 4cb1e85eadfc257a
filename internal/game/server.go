package game

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"example.com/stuckem/internal/httpapi"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

type Server struct {
	tables    *TableService
	publicURL string
	log       *slog.Logger
}

// NewServer serves the table API. publicURL, when set, is the base URL
// encoded into share codes; otherwise it is derived from the request.
func NewServer(tables *TableService, publicURL string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		tables:    tables,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

func (s *Server) RegisterRoutes(r *httprouter.Router) {
	r.POST("/api/tables", s.handleCreateTable)
	r.GET("/api/tables/:table", s.handleGetTable)
	r.GET("/ws/:table", s.handleWS)
	r.GET("/tables/:table/qr.png", s.handleQR)
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	t := s.tables.Create()
	httpapi.WriteJSON(w, http.StatusCreated, map[string]string{
		"tableId": t.ID(),
		"url":     s.tableURL(r, t.ID()),
	})
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	t, err := s.table(ps)
	if err != nil {
		httpapi.WriteErr(w, err)
		return
	}
	v, err := t.Snapshot(r.Context())
	if err != nil {
		httpapi.WriteErr(w, tableError(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, v)
}

// handleQR renders a PNG share code pointing at the table page.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	t, err := s.table(ps)
	if err != nil {
		httpapi.WriteErr(w, err)
		return
	}

	png, err := qrcode.Encode(s.tableURL(r, t.ID()), qrcode.Medium, qrSize)
	if err != nil {
		s.log.Error("qr generation failed", "table", t.ID(), "err", err)
		httpapi.WriteErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// table resolves the :table path parameter.
func (s *Server) table(ps httprouter.Params) (*Table, error) {
	t, ok := s.tables.Get(ps.ByName("table"))
	if !ok {
		return nil, tableError(ErrTableNotFound)
	}
	return t, nil
}

// tableError attaches the HTTP status and code for table lookup failures.
func tableError(err error) error {
	switch {
	case errors.Is(err, ErrTableNotFound):
		return httpapi.NewError(http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrTableClosed):
		return httpapi.NewError(http.StatusGone, "table_closed", err)
	}
	return err
}

func (s *Server) tableURL(r *http.Request, tableID string) string {
	base := s.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/tables/" + tableID
}
