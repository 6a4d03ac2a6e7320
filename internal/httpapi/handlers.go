package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/max-belichenko/vehicle-manager/internal/audit"
	"github.com/max-belichenko/vehicle-manager/internal/auth"
	"github.com/max-belichenko/vehicle-manager/internal/tabular"
	"github.com/max-belichenko/vehicle-manager/internal/vehicle"
	"github.com/max-belichenko/vehicle-manager/pkg/logger"
	"github.com/max-belichenko/vehicle-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Vehicles *vehicle.Service
	Audit    *audit.Service

	// Redis backs the per-user import slot; nil disables the cap.
	Redis         *redis.Client
	ImportLockTTL time.Duration
}

// --- Auth ---

type tokenRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IssueToken issues a JWT token pair.
//
// NOTE: Credential verification belongs to the identity collaborator in
// front of this service; user management is explicitly out of scope here.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Username == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, username, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Username, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), claims.UserID, claims.Username, claims.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Vehicles ---

type vehicleRequest struct {
	Make               string       `json:"make"`
	Model              string       `json:"model"`
	Color              string       `json:"color"`
	RegistrationNumber string       `json:"registration_number"`
	YearOfManufacture  int          `json:"year_of_manufacture"`
	VIN                string       `json:"vin"`
	CertificateNumber  string       `json:"vehicle_certificate_number"`
	CertificateDate    vehicle.Date `json:"vehicle_certificate_date"`
}

func (r vehicleRequest) toVehicle() vehicle.Vehicle {
	return vehicle.Vehicle{
		Make:               r.Make,
		Model:              r.Model,
		Color:              r.Color,
		RegistrationNumber: r.RegistrationNumber,
		YearOfManufacture:  r.YearOfManufacture,
		VIN:                r.VIN,
		CertificateNumber:  r.CertificateNumber,
		CertificateDate:    r.CertificateDate,
	}
}

func (h Handlers) ListVehicles(c *gin.Context) {
	filters := vehicle.FiltersFromValues(c.Request.URL.Query())
	vehicles, err := h.Vehicles.List(c.Request.Context(), filters)
	if err != nil {
		writeError(c, err)
		return
	}
	if vehicles == nil {
		vehicles = []vehicle.Vehicle{}
	}
	c.JSON(http.StatusOK, vehicles)
}

func (h Handlers) CreateVehicle(c *gin.Context) {
	actor, err := auth.Username(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	stored, err := h.Vehicles.Create(c.Request.Context(), actor, req.toVehicle())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h Handlers) GetVehicle(c *gin.Context) {
	id, ok := vehicleID(c)
	if !ok {
		return
	}
	v, err := h.Vehicles.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h Handlers) UpdateVehicle(c *gin.Context) {
	actor, err := auth.Username(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	id, ok := vehicleID(c)
	if !ok {
		return
	}
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v := req.toVehicle()
	v.ID = id
	stored, err := h.Vehicles.Update(c.Request.Context(), actor, v)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (h Handlers) DeleteVehicle(c *gin.Context) {
	actor, err := auth.Username(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	id, ok := vehicleID(c)
	if !ok {
		return
	}
	if err := h.Vehicles.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportVehicles ingests an uploaded spreadsheet/CSV file. The declared
// Content-Type selects the file type via the fixed table; anything else is
// rejected before a byte of the body is parsed.
func (h Handlers) ImportVehicles(c *gin.Context) {
	actor, err := auth.Username(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}

	fileType, ok := tabular.FileTypeFromContentType(c.ContentType())
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unsupported content type"})
		return
	}

	if h.Redis != nil {
		userID, _ := auth.UserID(c.Request.Context())
		key := "import:" + userID
		acquired, err := utils.AcquireSlot(c.Request.Context(), h.Redis, key, 1, h.importLockTTL())
		if err != nil {
			logger.FromGin(c).Warn("import slot acquire failed", "err", err)
		} else if !acquired {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "an import is already running for this user"})
			return
		}
		if err == nil {
			defer func() {
				if err := utils.ReleaseSlot(c.Request.Context(), h.Redis, key); err != nil {
					logger.FromGin(c).Warn("import slot release failed", "err", err)
				}
			}()
		}
	}

	if _, err := h.Vehicles.Import(c.Request.Context(), actor, fileType, c.Request.Body); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// ExportVehicles serializes the filtered record set. The Accept header
// selects the output file type via the same table import uses; xls is
// recognized but rejected as an export target.
func (h Handlers) ExportVehicles(c *gin.Context) {
	fileType, ok := fileTypeFromAccept(c.GetHeader("Accept"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unsupported accept type"})
		return
	}

	filters := vehicle.FiltersFromValues(c.Request.URL.Query())
	export, err := h.Vehicles.Export(c.Request.Context(), fileType, filters)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// --- Audit log ---

func (h Handlers) ListAuditLog(c *gin.Context) {
	entries, err := h.Audit.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// --- helpers ---

func (h Handlers) importLockTTL() time.Duration {
	if h.ImportLockTTL > 0 {
		return h.ImportLockTTL
	}
	return 10 * time.Minute
}

func vehicleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return 0, false
	}
	return id, true
}

// fileTypeFromAccept resolves the first recognized media type in an Accept
// header against the fixed content-type table.
func fileTypeFromAccept(accept string) (tabular.FileType, bool) {
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(part)
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = strings.TrimSpace(mediaType[:i])
		}
		if ft, ok := tabular.FileTypeFromContentType(mediaType); ok {
			return ft, true
		}
	}
	return "", false
}

// writeError maps the service error taxonomy onto HTTP statuses. Every
// client-correctable failure carries a description of the offending
// condition.
func writeError(c *gin.Context, err error) {
	var (
		verr    *vehicle.ValidationError
		missing *tabular.MissingColumnError
		parse   *tabular.ParseError
		imp     *vehicle.ImportError
	)

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, vehicle.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, vehicle.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, tabular.ErrUnsupportedFormat):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &verr), errors.As(err, &missing), errors.As(err, &parse):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &imp):
		// Import errors not matched above wrap a store failure.
		status, message = http.StatusInternalServerError, err.Error()
	}

	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
