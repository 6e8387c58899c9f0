package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bobmccarthy/kakei/internal/models"
	"github.com/bobmccarthy/kakei/internal/services/analyzer"
	"github.com/bobmccarthy/kakei/internal/tools"
)

// handleAnalyze handles POST /api/analyze: natural-language analysis over
// the expense rows carried in the request body.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.AnalyzeRequest
	if !DecodeJSON(w, r, &req, s.maxBodyBytes()) {
		return
	}

	resp, err := s.app.Analyzer.Analyze(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, analyzer.ErrInvalidRequest):
			WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, analyzer.ErrModelTransport):
			WriteError(w, http.StatusBadGateway, err.Error())
		default:
			s.logger.Error().Err(err).Msg("Analysis failed")
			WriteError(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// handleRender handles POST /api/render, rasterizing a figure document to PNG.
// The fig field accepts both a raw figure object and the JSON-encoded string
// form the analyze endpoint returns.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Fig    json.RawMessage `json:"fig"`
		Width  int             `json:"width"`
		Height int             `json:"height"`
	}
	if !DecodeJSON(w, r, &req, s.maxBodyBytes()) {
		return
	}
	if len(req.Fig) == 0 {
		WriteError(w, http.StatusBadRequest, "fig is required")
		return
	}

	figJSON := req.Fig
	var encoded string
	if err := json.Unmarshal(req.Fig, &encoded); err == nil {
		figJSON = []byte(encoded)
	}

	fig, err := models.FigureFromJSON(figJSON)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid figure document: "+err.Error())
		return
	}

	width := req.Width
	if width <= 0 {
		width = s.app.Config.Render.Width
	}
	height := req.Height
	if height <= 0 {
		height = s.app.Config.Render.Height
	}

	png, err := tools.RenderPNG(fig, width, height)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to render figure: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
