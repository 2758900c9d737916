package models

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SkillLevel is the learner's self-assessed level.
type SkillLevel string

const (
	SkillLevelBeginner     SkillLevel = "beginner"
	SkillLevelIntermediate SkillLevel = "intermediate"
	SkillLevelAdvanced     SkillLevel = "advanced"
)

// TopicCategory classifies a topic by technology kind.
type TopicCategory string

const (
	TopicCategoryLanguage  TopicCategory = "language"
	TopicCategoryFramework TopicCategory = "framework"
	TopicCategoryLibrary   TopicCategory = "library"
	TopicCategoryDatabase  TopicCategory = "database"
	TopicCategoryDevOps    TopicCategory = "devops"
	TopicCategoryOther     TopicCategory = "other"
)

// ErrValidation marks a roadmap that fails required-field or enum checks.
var ErrValidation = errors.New("roadmap validation failed")

// TechStack is the user's technology selection.
type TechStack struct {
	Languages  []string `json:"languages"`
	Frameworks []string `json:"frameworks"`
	Libraries  []string `json:"libraries"`
	Databases  []string `json:"databases"`
	DevOps     []string `json:"devops"`
	OtherTech  []string `json:"otherTech"`
}

// Normalized returns a copy with nil lists replaced by empty ones.
func (t TechStack) Normalized() TechStack {
	return TechStack{
		Languages:  nonNil(t.Languages),
		Frameworks: nonNil(t.Frameworks),
		Libraries:  nonNil(t.Libraries),
		Databases:  nonNil(t.Databases),
		DevOps:     nonNil(t.DevOps),
		OtherTech:  nonNil(t.OtherTech),
	}
}

// Topic is one learnable item inside a stage.
type Topic struct {
	ID          string        `json:"_id"`
	TopicTitle  string        `json:"topicTitle" validate:"required"`
	Resources   []string      `json:"resources"`
	Category    TopicCategory `json:"category" validate:"required,oneof=language framework library database devops other"`
	Project     string        `json:"project,omitempty"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completedAt"`
}

// Stage is an ordered group of topics.
type Stage struct {
	ID         string  `json:"_id"`
	StageTitle string  `json:"stageTitle" validate:"required"`
	Duration   string  `json:"duration"`
	Topics     []Topic `json:"topics" validate:"dive"`
}

// Roadmap is a generated learning plan owned by one user.
// Stages and the tech stack are stored as JSON documents so the whole tree is written in one statement.
type Roadmap struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"_id"` // Primary key.

	Title           string     `gorm:"type:text;not null" json:"title" validate:"required"`
	Description     string     `gorm:"type:text" json:"description"`
	TotalDuration   string     `gorm:"type:text" json:"totalDuration"`
	SkillLevel      SkillLevel `gorm:"type:varchar(16)" json:"skillLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
	IncludeProjects bool       `gorm:"not null;default:false" json:"includeProjects"`

	TechStack datatypes.JSONType[TechStack] `gorm:"not null" json:"techStack"`
	Stages    datatypes.JSONSlice[Stage]    `gorm:"not null" json:"stages" validate:"dive"`

	// Derived by Recompute on every save.
	Progress        int `gorm:"not null;default:0" json:"progress"`
	TotalTopics     int `gorm:"not null;default:0" json:"totalTopics"`
	CompletedTopics int `gorm:"not null;default:0" json:"completedTopics"`

	CreatedBy uint64 `gorm:"not null;index" json:"createdBy"` // Owning user ID.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}

// BeforeSave keeps derived fields consistent and rejects invalid documents on every write.
func (r *Roadmap) BeforeSave(tx *gorm.DB) error {
	now := time.Now().UTC()
	if tx != nil && tx.Config != nil && tx.NowFunc != nil {
		now = tx.NowFunc().UTC()
	}
	r.Recompute(now)
	return r.Validate()
}

// Recompute assigns missing stage and topic ids, enforces completedAt iff completed,
// and refreshes the topic counters and progress percentage.
func (r *Roadmap) Recompute(now time.Time) {
	if r.Stages == nil {
		r.Stages = datatypes.JSONSlice[Stage]{}
	}
	r.TechStack = datatypes.NewJSONType(r.TechStack.Data().Normalized())

	total, completed := 0, 0
	for i := range r.Stages {
		stage := &r.Stages[i]
		if strings.TrimSpace(stage.ID) == "" {
			stage.ID = uuid.NewString()
		}
		if stage.Topics == nil {
			stage.Topics = []Topic{}
		}
		for j := range stage.Topics {
			topic := &stage.Topics[j]
			if strings.TrimSpace(topic.ID) == "" {
				topic.ID = uuid.NewString()
			}
			topic.Resources = nonNil(topic.Resources)
			if topic.Completed {
				if topic.CompletedAt == nil {
					stamp := now
					topic.CompletedAt = &stamp
				}
				completed++
			} else {
				topic.CompletedAt = nil
			}
			total++
		}
	}

	r.TotalTopics = total
	r.CompletedTopics = completed
	r.Progress = ProgressPercent(completed, total)
}

// ProgressPercent returns round(100*completed/total), or 0 when total is zero.
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// SetTopicCompletion updates the first topic with the given id.
// Re-marking a completed topic keeps its original completion time rather than
// restamping it, so completedAt records when the topic was first finished.
// Clients that relied on every "complete" call refreshing the timestamp will
// see the earlier value.
func (r *Roadmap) SetTopicCompletion(topicID string, completed bool, now time.Time) bool {
	for i := range r.Stages {
		for j := range r.Stages[i].Topics {
			topic := &r.Stages[i].Topics[j]
			if topic.ID != topicID {
				continue
			}
			switch {
			case completed && !topic.Completed:
				stamp := now
				topic.CompletedAt = &stamp
			case !completed:
				topic.CompletedAt = nil
			}
			topic.Completed = completed
			return true
		}
	}
	return false
}

// Validate checks required fields and enum membership across the whole tree.
func (r *Roadmap) Validate() error {
	errValidate := roadmapValidator.Struct(r)
	if errValidate == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(errValidate, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, errValidate)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := strings.TrimPrefix(fe.Namespace(), "Roadmap.")
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", path))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s %q is not one of [%s]", path, fmt.Sprint(fe.Value()), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s", path, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
}

var roadmapValidator = newRoadmapValidator()

func newRoadmapValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
