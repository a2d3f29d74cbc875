// Package httpadapter exposes the scan and board endpoints over chi.
package httpadapter

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"floorboard/internal/ports"
	scansvc "floorboard/internal/services/scan"
)

type Server struct {
	scans   ports.Scanner
	codec   *scansvc.Codec
	board   ports.BoardReader
	tokens  ports.TokenSource
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

func New(scans ports.Scanner, codec *scansvc.Codec, board ports.BoardReader, tokens ports.TokenSource, baseURL string, logger *slog.Logger) *Server {
	return &Server{
		scans:   scans,
		codec:   codec,
		board:   board,
		tokens:  tokens,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/scan", s.handleScan)
	r.Get("/api/scan-url", s.handleScanURL)
	r.Post("/api/scanner", s.handleScannerPost)
	r.Get("/api/scan-states", s.handleScanStates)
	r.Get("/api/board", s.handleBoard)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScanURL mints a signed scan URL for one item, to be rendered as a
// printed barcode.
func (s *Server) handleScanURL(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("itemId")
	if itemID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "itemId required"})
		return
	}
	signed := s.codec.Issue(itemID)
	base := s.baseURL
	if base == "" {
		base = "https://" + r.Host
	}
	u := fmt.Sprintf("%s/scan?i=%s&ts=%s&sig=%s",
		base, url.QueryEscape(signed.ItemID), signed.Timestamp, signed.Signature)
	respondJSON(w, http.StatusOK, map[string]string{"url": u})
}

var scanPage = template.Must(template.New("scan").Parse(`<html><body style="font-family:Arial;padding:20px">
  <div>Scan recorded</div>
  <div>Count: {{.ScanCount}} — Status: <b>{{.Status}}</b></div>
  <script>setTimeout(()=>{ try{window.close()}catch(e){} }, 1200)</script>
</body></html>`))

// handleScan is the endpoint printed barcodes point at: verify, advance,
// mirror, confirm.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID, ts, sig := q.Get("i"), q.Get("ts"), q.Get("sig")
	wantJSON := q.Get("json") != ""
	if wantJSON {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}

	if itemID == "" || ts == "" || sig == "" {
		s.scanError(w, wantJSON, http.StatusBadRequest, "Invalid scan URL")
		return
	}
	if !s.codec.Verify(itemID, ts, sig) {
		s.scanError(w, wantJSON, http.StatusForbidden, "Signature check failed")
		return
	}
	if s.tokens.Token() == "" {
		s.scanError(w, wantJSON, http.StatusUnauthorized, "Not authenticated")
		return
	}

	rec, err := s.scans.Advance(r.Context(), itemID)
	if err != nil {
		// The advance is committed when only the mirror push failed; either
		// way the caller sees a retryable 500.
		s.logger.Error("scan failed", "item_id", itemID, "error", err)
		s.scanError(w, wantJSON, http.StatusInternalServerError, "Failed to update")
		return
	}

	if wantJSON {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "scan_count": rec.ScanCount, "status": rec.Status})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = scanPage.Execute(w, rec)
}

func (s *Server) scanError(w http.ResponseWriter, wantJSON bool, code int, msg string) {
	if wantJSON {
		respondJSON(w, code, map[string]any{"ok": false, "error": msg})
		return
	}
	http.Error(w, msg, code)
}

type scannerRequest struct {
	Scan string `json:"scan"`
}

// handleScannerPost accepts raw input from a serial barcode scanner: either a
// full scan URL or a bare query fragment. Missing timestamp or signature are
// filled in server-side; a present signature must still verify.
func (s *Server) handleScannerPost(w http.ResponseWriter, r *http.Request) {
	var req scannerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Scan) == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "No scan data"})
		return
	}

	itemID, ts, sig := parseScanInput(req.Scan)
	if itemID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid scan string - no item id"})
		return
	}
	if ts == "" {
		ts = strconv.FormatInt(s.now().UnixMilli(), 10)
		sig = ""
	}
	if sig != "" && !s.codec.Verify(itemID, ts, sig) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "Signature check failed"})
		return
	}
	if s.tokens.Token() == "" {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}

	rec, err := s.scans.Advance(r.Context(), itemID)
	if err != nil {
		s.logger.Error("scanner post failed", "item_id", itemID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to process scan"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "item": rec.ItemID, "scan_count": rec.ScanCount, "status": rec.Status})
}

// parseScanInput extracts the scan parameters from a full URL or a bare
// query fragment such as "i=501&ts=...&sig=...".
func parseScanInput(raw string) (itemID, ts, sig string) {
	raw = strings.TrimSpace(raw)
	var q url.Values
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		q = u.Query()
	} else {
		frag := strings.TrimPrefix(raw, "/scan")
		frag = strings.TrimPrefix(frag, "?")
		q, _ = url.ParseQuery(frag)
	}
	return q.Get("i"), q.Get("ts"), q.Get("sig")
}

func (s *Server) handleScanStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.scans.States(r.Context())
	if err != nil {
		s.logger.Error("scan states failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "failed"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "map": states})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if s.tokens.Token() == "" {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}
	snap, err := s.board.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("board fetch failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch board"})
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
