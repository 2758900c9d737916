package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/skillroad/skillroad/internal/models"
	"github.com/skillroad/skillroad/internal/roadmap"
)

// RoadmapHandler serves the caller's roadmaps.
type RoadmapHandler struct {
	roadmaps *roadmap.Service
}

// NewRoadmapHandler constructs a RoadmapHandler.
func NewRoadmapHandler(roadmaps *roadmap.Service) *RoadmapHandler {
	return &RoadmapHandler{roadmaps: roadmaps}
}

// generateRoadmapRequest defines the request body for roadmap generation.
type generateRoadmapRequest struct {
	RoadmapName     string            `json:"roadmapName" binding:"required"`
	SkillLevel      models.SkillLevel `json:"skillLevel" binding:"required,oneof=beginner intermediate advanced"`
	IncludeProjects bool              `json:"includeProjects"`
	TechStack       models.TechStack  `json:"techStack"`
}

// completeTopicRequest defines the request body for topic completion.
type completeTopicRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// Generate asks the model for a new roadmap and stores it for the caller.
func (h *RoadmapHandler) Generate(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		abortUnauthorized(c)
		return
	}

	var body generateRoadmapRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": bindingMessage(errBind)})
		return
	}

	created, errGenerate := h.roadmaps.Generate(c.Request.Context(), userID, roadmap.GenerateInput{
		RoadmapName:     body.RoadmapName,
		SkillLevel:      body.SkillLevel,
		IncludeProjects: body.IncludeProjects,
		TechStack:       body.TechStack,
	})
	if errors.Is(errGenerate, roadmap.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"message": errGenerate.Error()})
		return
	}
	if errGenerate != nil {
		log.WithError(errGenerate).WithField("user_id", userID).Error("generate roadmap failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to generate roadmap",
			"error":   errGenerate.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, formatRoadmap(created))
}

// List returns the caller's roadmaps, newest first.
func (h *RoadmapHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		abortUnauthorized(c)
		return
	}

	roadmaps, errList := h.roadmaps.List(c.Request.Context(), userID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error", "error": errList.Error()})
		return
	}

	out := make([]gin.H, 0, len(roadmaps))
	for i := range roadmaps {
		out = append(out, formatRoadmap(&roadmaps[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one of the caller's roadmaps.
func (h *RoadmapHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		abortUnauthorized(c)
		return
	}
	roadmapID, ok := parseIDParam(c, "id")
	if !ok {
		respondNotFound(c, roadmap.ErrNotFound)
		return
	}

	found, errGet := h.roadmaps.Get(c.Request.Context(), userID, roadmapID)
	if errGet != nil {
		h.respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, formatRoadmap(found))
}

// CompleteTopic marks one topic complete or incomplete and returns the updated roadmap.
func (h *RoadmapHandler) CompleteTopic(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		abortUnauthorized(c)
		return
	}
	roadmapID, ok := parseIDParam(c, "id")
	if !ok {
		respondNotFound(c, roadmap.ErrNotFound)
		return
	}

	var body completeTopicRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": bindingMessage(errBind)})
		return
	}

	updated, errUpdate := h.roadmaps.SetTopicCompletion(c.Request.Context(), userID, roadmapID, c.Param("topicId"), *body.Completed)
	if errUpdate != nil {
		h.respondError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, formatRoadmap(updated))
}

// Delete removes one of the caller's roadmaps.
func (h *RoadmapHandler) Delete(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		abortUnauthorized(c)
		return
	}
	roadmapID, ok := parseIDParam(c, "id")
	if !ok {
		respondNotFound(c, roadmap.ErrNotFound)
		return
	}

	if errDelete := h.roadmaps.Delete(c.Request.Context(), userID, roadmapID); errDelete != nil {
		h.respondError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Roadmap deleted successfully"})
}

func (h *RoadmapHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roadmap.ErrNotFound), errors.Is(err, roadmap.ErrTopicNotFound):
		respondNotFound(c, err)
	case errors.Is(err, roadmap.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error", "error": err.Error()})
	}
}

func respondNotFound(c *gin.Context, err error) {
	message := roadmap.ErrNotFound.Error()
	if errors.Is(err, roadmap.ErrTopicNotFound) {
		message = roadmap.ErrTopicNotFound.Error()
	}
	c.JSON(http.StatusNotFound, gin.H{"message": message})
}

func formatRoadmap(r *models.Roadmap) gin.H {
	stages := []models.Stage(r.Stages)
	if stages == nil {
		stages = []models.Stage{}
	}
	return gin.H{
		"_id":             r.ID,
		"title":           r.Title,
		"description":     r.Description,
		"totalDuration":   r.TotalDuration,
		"skillLevel":      r.SkillLevel,
		"includeProjects": r.IncludeProjects,
		"techStack":       r.TechStack.Data().Normalized(),
		"stages":          stages,
		"progress":        r.Progress,
		"totalTopics":     r.TotalTopics,
		"completedTopics": r.CompletedTopics,
		"createdBy":       r.CreatedBy,
		"createdAt":       r.CreatedAt,
		"updatedAt":       r.UpdatedAt,
	}
}
