// Package roadmap generates, stores and updates users' learning roadmaps.
package roadmap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/skillroad/skillroad/internal/db"
	"github.com/skillroad/skillroad/internal/generation"
	"github.com/skillroad/skillroad/internal/metrics"
	"github.com/skillroad/skillroad/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for roadmaps that do not exist or belong to another user.
	ErrNotFound = errors.New("Roadmap not found")
	// ErrTopicNotFound is returned when the roadmap holds no topic with the requested id.
	ErrTopicNotFound = errors.New("Topic not found")
	// ErrValidation marks a roadmap that fails persistence checks.
	ErrValidation = models.ErrValidation
	// ErrInvalidInput marks a generate request rejected before the model is called.
	ErrInvalidInput = errors.New("invalid roadmap request")
)

var skillLevels = []models.SkillLevel{
	models.SkillLevelBeginner,
	models.SkillLevelIntermediate,
	models.SkillLevelAdvanced,
}

// GenerateInput is the caller's request for a new roadmap.
type GenerateInput struct {
	RoadmapName     string
	SkillLevel      models.SkillLevel
	IncludeProjects bool
	TechStack       models.TechStack
}

// Service implements the roadmap lifecycle on top of gorm.
type Service struct {
	db        *gorm.DB
	generator generation.Generator
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(conn *gorm.DB, generator generation.Generator) *Service {
	return &Service{db: conn, generator: generator, now: time.Now}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// Generate asks the model for a roadmap, stores it for ownerID and records it in the owner's roadmap list.
func (s *Service) Generate(ctx context.Context, ownerID uint64, in GenerateInput) (*models.Roadmap, error) {
	started := time.Now()
	outcome := metrics.GenerationSuccess
	defer func() {
		metrics.ObserveGeneration(outcome, time.Since(started))
	}()

	in.RoadmapName = strings.TrimSpace(in.RoadmapName)
	if in.RoadmapName == "" {
		outcome = metrics.GenerationInvalid
		return nil, fmt.Errorf("%w: roadmapName is required", ErrInvalidInput)
	}
	if !slices.Contains(skillLevels, in.SkillLevel) {
		outcome = metrics.GenerationInvalid
		return nil, fmt.Errorf("%w: skillLevel %q is not one of [beginner intermediate advanced]", ErrInvalidInput, in.SkillLevel)
	}
	if s.generator == nil {
		outcome = metrics.GenerationServiceError
		return nil, fmt.Errorf("%w: no generator configured", generation.ErrService)
	}
	techStack := in.TechStack.Normalized()

	prompt := generation.BuildPrompt(generation.Request{
		RoadmapName:     in.RoadmapName,
		SkillLevel:      in.SkillLevel,
		IncludeProjects: in.IncludeProjects,
		TechStack:       techStack,
	})
	text, errGenerate := s.generator.Generate(ctx, prompt)
	if errGenerate != nil {
		outcome = metrics.GenerationServiceError
		if !errors.Is(errGenerate, generation.ErrService) {
			errGenerate = fmt.Errorf("%w: %v", generation.ErrService, errGenerate)
		}
		return nil, errGenerate
	}

	var draft generation.Draft
	switch extracted := generation.Extract(text).(type) {
	case generation.Unparseable:
		outcome = metrics.GenerationParseError
		log.WithField("owner_id", ownerID).WithField("reason", extracted.Reason).Warn("roadmap: unparseable model output")
		return nil, extracted.Err()
	case generation.Parsed:
		decoded, errDraft := extracted.Draft()
		if errDraft != nil {
			outcome = metrics.GenerationInvalid
			return nil, fmt.Errorf("%w: %v", ErrValidation, errDraft)
		}
		draft = decoded
	default:
		outcome = metrics.GenerationParseError
		return nil, generation.ErrParse
	}

	roadmap := models.Roadmap{
		Title:           draft.Title,
		Description:     draft.Description,
		TotalDuration:   draft.TotalDuration,
		SkillLevel:      in.SkillLevel,
		IncludeProjects: in.IncludeProjects,
		TechStack:       datatypes.NewJSONType(techStack),
		Stages:          datatypes.JSONSlice[models.Stage](draft.Stages),
		CreatedBy:       ownerID,
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if errOwner := db.ForUpdate(tx).Where("id = ?", ownerID).First(&owner).Error; errOwner != nil {
			return fmt.Errorf("load owner: %w", errOwner)
		}
		if errCreate := tx.Create(&roadmap).Error; errCreate != nil {
			return errCreate
		}
		return tx.Model(&models.User{}).
			Where("id = ?", owner.ID).
			Update("roadmap_ids", owner.RoadmapIDs.With(roadmap.ID)).Error
	})
	if errTx != nil {
		if errors.Is(errTx, ErrValidation) {
			outcome = metrics.GenerationInvalid
		} else {
			outcome = metrics.GenerationStoreError
		}
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"owner_id":     ownerID,
		"roadmap_id":   roadmap.ID,
		"total_topics": roadmap.TotalTopics,
	}).Info("roadmap generated")
	return &roadmap, nil
}

// List returns the owner's roadmaps, newest first.
func (s *Service) List(ctx context.Context, ownerID uint64) ([]models.Roadmap, error) {
	var roadmaps []models.Roadmap
	if errFind := s.db.WithContext(ctx).
		Where("created_by = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&roadmaps).Error; errFind != nil {
		return nil, errFind
	}
	return roadmaps, nil
}

// Get returns one roadmap owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, roadmapID uint64) (*models.Roadmap, error) {
	var roadmap models.Roadmap
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", roadmapID, ownerID).
		First(&roadmap).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &roadmap, nil
}

// SetTopicCompletion marks a topic complete or incomplete and saves the roadmap.
// The read-modify-write holds a row lock so concurrent toggles on one roadmap apply in turn.
func (s *Service) SetTopicCompletion(ctx context.Context, ownerID, roadmapID uint64, topicID string, completed bool) (*models.Roadmap, error) {
	var roadmap models.Roadmap
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := db.ForUpdate(tx).
			Where("id = ? AND created_by = ?", roadmapID, ownerID).
			First(&roadmap).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if !roadmap.SetTopicCompletion(topicID, completed, s.clock()) {
			return ErrTopicNotFound
		}
		return tx.Save(&roadmap).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	metrics.ObserveTopicToggle(completed)
	return &roadmap, nil
}

// Delete removes a roadmap owned by ownerID and drops it from the owner's roadmap list.
func (s *Service) Delete(ctx context.Context, ownerID, roadmapID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var roadmap models.Roadmap
		if errFind := db.ForUpdate(tx).
			Where("id = ? AND created_by = ?", roadmapID, ownerID).
			First(&roadmap).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if errDelete := tx.Delete(&models.Roadmap{}, roadmap.ID).Error; errDelete != nil {
			return errDelete
		}

		var owner models.User
		if errOwner := db.ForUpdate(tx).Where("id = ?", ownerID).First(&owner).Error; errOwner != nil {
			if errors.Is(errOwner, gorm.ErrRecordNotFound) {
				return nil
			}
			return errOwner
		}
		return tx.Model(&models.User{}).
			Where("id = ?", owner.ID).
			Update("roadmap_ids", owner.RoadmapIDs.Without(roadmap.ID)).Error
	})
}
