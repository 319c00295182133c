package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reviewdesk/internal/features"
	"reviewdesk/internal/models"
	"reviewdesk/internal/service"
	"reviewdesk/internal/utils/checker"
	"reviewdesk/internal/utils/extractor"
	"reviewdesk/internal/utils/sort"
)

// Handler wires the portal use cases to the REST surface consumed by the
// dashboard UI.
type Handler struct {
	portal    *features.Portal
	storage   *service.StorageClient
	identity  *service.IdentityClient
	extractor extractor.Extractor
	logger    *zap.Logger
}

func New(portal *features.Portal, storage *service.StorageClient, identity *service.IdentityClient, ext extractor.Extractor, logger *zap.Logger) *Handler {
	return &Handler{
		portal:    portal,
		storage:   storage,
		identity:  identity,
		extractor: ext,
		logger:    logger,
	}
}

// Register mounts every route behind attestation and bearer auth.
func (h *Handler) Register(router *gin.Engine, verifier AttestationVerifier) {
	router.Use(RequestID(h.extractor))

	authed := router.Group("/", Attestation(h.extractor, verifier, h.logger), BearerAuth(h.extractor, h.logger))

	authed.POST("/status/decision", h.confirmDecision)
	authed.GET("/status/:responseId/:role", h.getStatus)
	authed.POST("/application/interview-rubrics", h.importInterviewRubrics)

	authed.POST("/forms", h.createForm)
	authed.GET("/forms/:formId/assigned", h.assignedRows)
	authed.PATCH("/forms/:formId/active", h.setFormActive)
	authed.POST("/forms/:formId/rubrics", h.createRubric)
	authed.POST("/forms/:formId/assignments", h.createAssignment)
	authed.GET("/forms/:formId/assignments", h.listAssignments)

	authed.GET("/reviews/:id", h.getReview)
	authed.PUT("/reviews/:id/ratings", h.saveRatings)
	authed.POST("/reviews/:id/submit", h.submitReview)
	authed.POST("/interviews/:id/submit", h.submitInterview)
	authed.PATCH("/status/:responseId/:role/release", h.setReleased)

	authed.GET("/profile/me", h.currentUser)
	authed.POST("/auth/logout", h.logout)
	authed.POST("/profiles", h.importProfile)
	authed.POST("/attachments", h.uploadAttachment)
	authed.GET("/attachments/meta", h.attachmentMeta)
	authed.GET("/attachments/download-url", h.attachmentDownloadURL)
}

func (h *Handler) confirmDecision(c *gin.Context) {
	var req features.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userId")
	decision, err := h.portal.ConfirmDecision(c.Request.Context(), req, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create decision"})
		return
	}
	c.JSON(http.StatusCreated, decision)
}

func (h *Handler) getStatus(c *gin.Context) {
	responseID := c.Param("responseId")
	role := models.ApplicantRole(c.Param("role"))

	status, err := h.portal.GetStatus(c.Request.Context(), responseID, role)
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "status not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) importInterviewRubrics(c *gin.Context) {
	// Bulk upload is restricted to super-reviewers.
	if err := checker.CheckRole(models.UserRoleSuperReviewer, h.extractor.GetRoleIDs(c.Request.Header)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var rubrics []models.InterviewRubric
	if err := c.ShouldBindJSON(&rubrics); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(rubrics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no rubrics in payload"})
		return
	}

	count, err := h.portal.ImportInterviewRubrics(c.Request.Context(), rubrics)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": count})
}

func (h *Handler) createForm(c *gin.Context) {
	if err := checker.CheckRole(models.UserRoleSuperReviewer, h.extractor.GetRoleIDs(c.Request.Header)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var req features.FormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := h.portal.CreateForm(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create form"})
		return
	}
	c.JSON(http.StatusCreated, form)
}

func (h *Handler) createRubric(c *gin.Context) {
	if err := checker.CheckRole(models.UserRoleSuperReviewer, h.extractor.GetRoleIDs(c.Request.Header)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var rubric models.RoleReviewRubric
	if err := c.ShouldBindJSON(&rubric); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.portal.CreateRubric(c.Request.Context(), c.Param("formId"), rubric)
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) createAssignment(c *gin.Context) {
	if err := checker.CheckRole(models.UserRoleSuperReviewer, h.extractor.GetRoleIDs(c.Request.Header)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var req features.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment, err := h.portal.CreateAssignment(c.Request.Context(), c.Param("formId"), req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

func (h *Handler) listAssignments(c *gin.Context) {
	if err := checker.CheckRole(models.UserRoleSuperReviewer, h.extractor.GetRoleIDs(c.Request.Header)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var sorts []sort.SortMethod
	if name := c.Query("sort_by"); name != "" {
		sorts = append(sorts, sort.SortMethod{Name: name, Desc: c.Query("desc") == "true"})
	}

	assignments, err := h.portal.ListAssignments(c.Request.Context(), c.Param("formId"), sorts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}

func (h *Handler) getReview(c *gin.Context) {
	review, err := h.portal.GetReview(c.Request.Context(), c.Param("id"), c.GetString("userId"))
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) saveRatings(c *gin.Context) {
	var req struct {
		Ratings map[string]float64 `json:"ratings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.portal.SaveReviewRatings(c.Request.Context(), c.Param("id"), c.GetString("userId"), req.Ratings); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ratings saved"})
}

func (h *Handler) importProfile(c *gin.Context) {
	if err := checker.CheckRole(models.UserRoleSuperReviewer, h.extractor.GetRoleIDs(c.Request.Header)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var profile models.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.portal.ImportProfile(c.Request.Context(), profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import profile"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": created.ID})
}

func (h *Handler) assignedRows(c *gin.Context) {
	formID := c.Param("formId")
	userID := c.GetString("userId")

	rows, err := h.portal.AssignedRows(c.Request.Context(), formID, userID)
	if err != nil {
		h.logger.Error("Failed to resolve assigned rows", zap.String("formId", formID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve assignments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *Handler) setFormActive(c *gin.Context) {
	if err := checker.CheckRole(models.UserRoleSuperReviewer, h.extractor.GetRoleIDs(c.Request.Header)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.portal.SetFormActive(c.Request.Context(), c.Param("formId"), *req.Active); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update form active status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "form updated"})
}

func (h *Handler) submitReview(c *gin.Context) {
	userID := c.GetString("userId")

	if err := h.portal.SubmitReview(c.Request.Context(), c.Param("id"), userID); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review submitted"})
}

func (h *Handler) submitInterview(c *gin.Context) {
	userID := c.GetString("userId")

	if err := h.portal.SubmitInterview(c.Request.Context(), c.Param("id"), userID); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "interview submitted"})
}

// setReleased flips status visibility for the applicant. Restricted to
// super-reviewers like the other status mutations.
func (h *Handler) setReleased(c *gin.Context) {
	if err := checker.CheckRole(models.UserRoleSuperReviewer, h.extractor.GetRoleIDs(c.Request.Header)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Released *bool `json:"released" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	responseID := c.Param("responseId")
	role := models.ApplicantRole(c.Param("role"))
	if err := h.portal.SetReleased(c.Request.Context(), responseID, role, *req.Released); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "status not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update release flag"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "release flag updated"})
}

// currentUser resolves the caller's identity through the identity provider.
// The forwarded headers already carry the verified flag; the provider call
// covers clients whose gateway did not inject it.
func (h *Handler) currentUser(c *gin.Context) {
	if h.extractor.GetEmailVerified(c.Request.Header) {
		c.JSON(http.StatusOK, service.Identity{
			UserID:        c.GetString("userId"),
			Email:         h.extractor.GetFirst(c.Request.Header, extractor.Email),
			EmailVerified: true,
		})
		return
	}

	bearer, err := h.extractor.GetBearer(c.Request.Header)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	identity, err := h.identity.CurrentUser(c.Request.Context(), bearer)
	if err != nil {
		h.logger.Error("Failed to resolve identity", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve identity"})
		return
	}
	c.JSON(http.StatusOK, identity)
}

// logout revokes the caller's token at the identity provider.
func (h *Handler) logout(c *gin.Context) {
	bearer, err := h.extractor.GetBearer(c.Request.Header)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err := h.identity.Logout(c.Request.Context(), bearer); err != nil {
		h.logger.Error("Failed to revoke token", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to log out"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) uploadAttachment(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	size := c.Request.ContentLength
	if size <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content length is required"})
		return
	}

	if err := h.storage.Upload(c.Request.Context(), path, c.Request.Body, size, nil); err != nil {
		h.logger.Error("Failed to upload attachment", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to upload attachment"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": path, "size": size})
}

func (h *Handler) attachmentMeta(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	meta, err := h.storage.Metadata(c.Request.Context(), path)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch attachment metadata"})
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *Handler) attachmentDownloadURL(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	url, err := h.storage.DownloadURL(c.Request.Context(), path)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch download url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
