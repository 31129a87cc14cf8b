package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"verisight-backend/internal/shared/server/middleware"
	"verisight-backend/internal/shared/server/respond"
)

const defaultMaxUploadBytes = 50 << 20

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
	// MaxUploadBytes caps the upload request body.
	MaxUploadBytes int64
	// StrictForbidden answers 403 instead of 401 when a record belongs to someone else.
	StrictForbidden bool
	// UploadLimit is an optional middleware applied to the upload route only.
	UploadLimit gin.HandlerFunc
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: defaultMaxUploadBytes}
}

// RegisterRoutes attaches analysis routes to a group that already enforces authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	upload := []gin.HandlerFunc{}
	if h.UploadLimit != nil {
		upload = append(upload, h.UploadLimit)
	}
	upload = append(upload, h.upload)

	rg.GET("/analysis", h.list)
	rg.POST("/analysis/upload", upload...)
	rg.GET("/analysis/:id", h.get)
	rg.GET("/analysis/:id/content", h.content)
	rg.DELETE("/analysis/:id", h.delete)
}

type uploadRequest struct {
	FileName string `json:"fileName" binding:"required"`
	FileType string `json:"fileType" binding:"required,oneof=image audio video text"`
	FileData string `json:"fileData"`
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, limit)
		return
	}

	analysis, err := h.Svc.Upload(h.ctx(c), middleware.UserIDFromContext(c), UploadInput{
		FileName: req.FileName,
		FileType: req.FileType,
		FileData: req.FileData,
	})
	if err != nil {
		h.writeError(c, err, true)
		return
	}
	c.Set("analysisId", analysis.ID)
	respond.JSON(c, http.StatusCreated, analysis)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(h.ctx(c), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err, false)
		return
	}
	respond.OK(c, list)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	analysis, err := h.Svc.Get(h.ctx(c), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.writeError(c, err, false)
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(h.ctx(c), middleware.UserIDFromContext(c), id); err != nil {
		h.writeError(c, err, false)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) content(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	content, err := h.Svc.Content(h.ctx(c), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.writeError(c, err, false)
		return
	}
	defer content.Body.Close()

	extra := map[string]string{
		"Content-Disposition":    contentDisposition(content.FileName),
		"X-Content-Type-Options": "nosniff",
	}
	c.DataFromReader(http.StatusOK, content.Size, content.MIMEType, content.Body, extra)
}

// contentDisposition falls back to a bare "inline" when the name cannot be encoded.
func contentDisposition(fileName string) string {
	if v := mime.FormatMediaType("inline", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return "inline"
}

// Non-numeric ids cannot name an existing record.
func (h *Handler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusNotFound, "not_found", "Analysis not found")
		return 0, false
	}
	c.Set("analysisId", id)
	return id, true
}

func (h *Handler) ctx(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func (h *Handler) writeError(c *gin.Context, err error, upload bool) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		respond.FieldError(c, http.StatusBadRequest, vErr.Field, vErr.Message)
	case errors.Is(err, ErrUnauthenticated):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Analysis not found")
	case errors.Is(err, ErrForbidden):
		if h.StrictForbidden {
			respond.Error(c, http.StatusForbidden, "forbidden", "Forbidden")
			return
		}
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
	case errors.Is(err, ErrNoContent):
		respond.Error(c, http.StatusNotFound, "not_found", "Content not available")
	case upload:
		respond.Error(c, http.StatusInternalServerError, "analysis_failed", "Failed to analyze file. "+err.Error())
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Internal server error")
	}
}

func writeBindError(c *gin.Context, err error, limit int64) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		respond.FieldError(c, http.StatusBadRequest, "fileData",
			fmt.Sprintf("File exceeds the maximum upload size of %d bytes", limit))
		return
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		fe := vErrs[0]
		field := jsonFieldName(fe.Field())
		msg := field + " is required"
		if fe.Tag() == "oneof" {
			msg = field + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
		}
		respond.FieldError(c, http.StatusBadRequest, field, msg)
		return
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		respond.FieldError(c, http.StatusBadRequest, typeErr.Field, typeErr.Field+" must be a string")
		return
	}
	respond.Error(c, http.StatusBadRequest, "invalid_body", "Invalid request body")
}

func jsonFieldName(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}
