package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

const maxReferenceImages = 6

type AdminHandler struct {
	themeService   services.ThemeServiceInterface
	drawingService services.DrawingServiceInterface
	media          services.MediaUploader
	maxUploadBytes int64
}

func NewAdminHandler(themeService services.ThemeServiceInterface, drawingService services.DrawingServiceInterface, media services.MediaUploader, maxUploadBytes int64) *AdminHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = services.DefaultMaxUploadBytes
	}
	return &AdminHandler{
		themeService:   themeService,
		drawingService: drawingService,
		media:          media,
		maxUploadBytes: maxUploadBytes,
	}
}

type CreateThemeRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Date            string   `json:"date"`
	IsActive        bool     `json:"is_active"`
	ReferenceImages []string `json:"reference_images"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

type ThemeResponse struct {
	Theme   *models.Theme `json:"theme,omitempty"`
	Message string        `json:"message,omitempty"`
}

func (h *AdminHandler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.themeService.List(r.Context())
	if err != nil {
		log.Printf("Error listing themes: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, ThemeListResponse{Themes: themes})
}

// CreateTheme accepts JSON, or a multipart form whose "references" files are
// uploaded to the media CDN and appended to any reference_images URLs.
func (h *AdminHandler) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var req CreateThemeRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		parsed, ok := h.readThemeForm(w, r)
		if !ok {
			return
		}
		req = parsed
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.ReferenceImages) > maxReferenceImages {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("At most %d reference images are allowed", maxReferenceImages))
		return
	}

	theme, err := h.themeService.Create(r.Context(), models.CreateThemeParams{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		IsActive:        req.IsActive,
		ReferenceImages: req.ReferenceImages,
	})
	if errors.Is(err, services.ErrInvalidTheme) {
		writeError(w, http.StatusBadRequest, "Themes need a title and a YYYY-MM-DD date")
		return
	}
	if err != nil {
		log.Printf("Error creating theme: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, ThemeResponse{Theme: theme})
}

func (h *AdminHandler) SetThemeActive(w http.ResponseWriter, r *http.Request) {
	themeID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid theme ID")
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	theme, err := h.themeService.SetActive(r.Context(), themeID, *req.IsActive)
	if errors.Is(err, services.ErrThemeNotFound) {
		writeError(w, http.StatusNotFound, "Theme not found")
		return
	}
	if err != nil {
		log.Printf("Error updating theme: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: theme})
}

func (h *AdminHandler) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	themeID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid theme ID")
		return
	}

	err = h.themeService.Delete(r.Context(), themeID)
	if errors.Is(err, services.ErrThemeNotFound) {
		writeError(w, http.StatusNotFound, "Theme not found")
		return
	}
	if err != nil {
		log.Printf("Error deleting theme: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Message: "Theme deleted"})
}

// RemoveReference drops one reference image, named by the url query parameter.
func (h *AdminHandler) RemoveReference(w http.ResponseWriter, r *http.Request) {
	themeID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid theme ID")
		return
	}
	imageURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if imageURL == "" {
		writeError(w, http.StatusBadRequest, "Missing image URL")
		return
	}

	theme, err := h.themeService.RemoveReferenceImage(r.Context(), themeID, imageURL)
	if errors.Is(err, services.ErrThemeNotFound) {
		writeError(w, http.StatusNotFound, "Theme not found")
		return
	}
	if err != nil {
		log.Printf("Error removing reference image: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: theme})
}

func (h *AdminHandler) DeleteDrawing(w http.ResponseWriter, r *http.Request) {
	drawingID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing ID")
		return
	}

	err = h.drawingService.Delete(r.Context(), drawingID)
	if errors.Is(err, services.ErrDrawingNotFound) {
		writeError(w, http.StatusNotFound, "Drawing not found")
		return
	}
	if err != nil {
		log.Printf("Error deleting drawing: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Drawing deleted"})
}

func (h *AdminHandler) readThemeForm(w http.ResponseWriter, r *http.Request) (CreateThemeRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReferenceImages*h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload form")
		return CreateThemeRequest{}, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	active, _ := strconv.ParseBool(r.FormValue("is_active"))
	req := CreateThemeRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Date:        r.FormValue("date"),
		IsActive:    active,
	}
	for _, u := range r.MultipartForm.Value["reference_images"] {
		if u = strings.TrimSpace(u); u != "" {
			req.ReferenceImages = append(req.ReferenceImages, u)
		}
	}

	files := r.MultipartForm.File["references"]
	if len(req.ReferenceImages)+len(files) > maxReferenceImages {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("At most %d reference images are allowed", maxReferenceImages))
		return CreateThemeRequest{}, false
	}
	for _, fh := range files {
		if fh.Size > h.maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "Image is too large")
			return CreateThemeRequest{}, false
		}
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid upload form")
			return CreateThemeRequest{}, false
		}
		url, err := h.media.Upload(r.Context(), "theme_"+fh.Filename, f)
		_ = f.Close()
		if err != nil {
			log.Printf("Error uploading reference image: %v", err)
			writeError(w, http.StatusBadGateway, "Image upload failed, please try again")
			return CreateThemeRequest{}, false
		}
		req.ReferenceImages = append(req.ReferenceImages, url)
	}
	return req, true
}
