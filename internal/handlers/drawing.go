package handlers

import (
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

const (
	multipartMemory = 8 << 20
	// Room for the text fields and multipart framing around the image.
	multipartOverhead = 1 << 20
)

type DrawingHandler struct {
	drawingService services.DrawingServiceInterface
	galleryService services.GalleryServiceInterface
	maxUploadBytes int64
}

func NewDrawingHandler(drawingService services.DrawingServiceInterface, galleryService services.GalleryServiceInterface, maxUploadBytes int64) *DrawingHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = services.DefaultMaxUploadBytes
	}
	return &DrawingHandler{
		drawingService: drawingService,
		galleryService: galleryService,
		maxUploadBytes: maxUploadBytes,
	}
}

type DrawingResponse struct {
	Drawing *models.Drawing `json:"drawing"`
}

type EligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

// Submit posts a drawing for today's theme.
func (h *DrawingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	params, cleanup, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	drawing, err := h.drawingService.Submit(r.Context(), user.ID, params)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DrawingResponse{Drawing: drawing})
}

// SubmitLate posts a drawing for a past theme named by the theme_id form field.
func (h *DrawingHandler) SubmitLate(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	params, cleanup, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	themeID, err := uuid.Parse(r.FormValue("theme_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid theme ID")
		return
	}

	drawing, err := h.drawingService.SubmitLate(r.Context(), user.ID, themeID, params)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DrawingResponse{Drawing: drawing})
}

func (h *DrawingHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	themeID, err := uuid.Parse(r.URL.Query().Get("theme_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid theme ID")
		return
	}

	err = h.drawingService.CheckEligibility(r.Context(), user.ID, themeID)
	if errors.Is(err, services.ErrAlreadySubmitted) {
		writeJSON(w, http.StatusOK, EligibilityResponse{Eligible: false})
		return
	}
	if err != nil {
		log.Printf("Error checking eligibility: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, EligibilityResponse{Eligible: true})
}

// Get returns the drawing page: the drawing, its reactions and comments.
func (h *DrawingHandler) Get(w http.ResponseWriter, r *http.Request) {
	drawingID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing ID")
		return
	}

	detail, err := h.galleryService.Detail(r.Context(), drawingID, viewerID(r))
	if errors.Is(err, services.ErrDrawingNotFound) {
		writeError(w, http.StatusNotFound, "Drawing not found")
		return
	}
	if err != nil {
		log.Printf("Error loading drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *DrawingHandler) Download(w http.ResponseWriter, r *http.Request) {
	drawingID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing ID")
		return
	}

	download, err := h.drawingService.Download(r.Context(), drawingID)
	switch {
	case errors.Is(err, services.ErrDrawingNotFound):
		writeError(w, http.StatusNotFound, "Drawing not found")
		return
	case errors.Is(err, services.ErrMediaUpload):
		log.Printf("Error fetching drawing image: %v", err)
		writeError(w, http.StatusBadGateway, "Image is unavailable, please try again")
		return
	case err != nil:
		log.Printf("Error downloading drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer download.Body.Close()

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": download.Filename}))
	if download.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(download.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, download.Body); err != nil {
		log.Printf("Error streaming drawing download: %v", err)
	}
}

// readUpload parses the multipart form. On failure the error response has
// already been written.
func (h *DrawingHandler) readUpload(w http.ResponseWriter, r *http.Request) (services.SubmitParams, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Image is too large")
			return services.SubmitParams{}, nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid upload form")
		return services.SubmitParams{}, nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please choose an image to upload")
		return services.SubmitParams{}, nil, false
	}

	params := services.SubmitParams{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Filename:    header.Filename,
		Size:        header.Size,
		File:        file,
	}
	cleanup := func() {
		_ = file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	return params, cleanup, true
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidUpload):
		writeError(w, http.StatusBadRequest, "Please upload a JPEG, PNG, GIF or WebP image")
	case errors.Is(err, services.ErrNoActiveTheme):
		writeError(w, http.StatusBadRequest, "No theme is active today")
	case errors.Is(err, services.ErrSubmissionClosed):
		writeError(w, http.StatusForbidden, "Submissions are closed for this theme")
	case errors.Is(err, services.ErrThemeNotOpen):
		writeError(w, http.StatusBadRequest, "This theme is not open for submissions")
	case errors.Is(err, services.ErrThemeNotFound):
		writeError(w, http.StatusNotFound, "Theme not found")
	case errors.Is(err, services.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, "You have already submitted a drawing for this theme")
	case errors.Is(err, services.ErrMediaUpload):
		log.Printf("Error uploading drawing: %v", err)
		writeError(w, http.StatusBadGateway, "Image upload failed, please try again")
	default:
		log.Printf("Error submitting drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
