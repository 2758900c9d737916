package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/skillroad/skillroad/internal/models"
)

var (
	// ErrService reports an unreachable or failing text-generation endpoint.
	ErrService = errors.New("generation service error")
	// ErrParse reports model output that holds no usable JSON object.
	ErrParse = errors.New("Invalid response from AI")
)

// Extraction is the outcome of scanning model output for a JSON object.
// It is either Parsed or Unparseable.
type Extraction interface {
	extraction()
}

// Parsed holds a syntactically valid JSON object found in the model output.
type Parsed struct {
	Raw json.RawMessage
}

// Unparseable explains why no JSON object could be recovered.
type Unparseable struct {
	Reason string
}

func (Parsed) extraction()      {}
func (Unparseable) extraction() {}

// Err converts the outcome into an error wrapping ErrParse.
func (u Unparseable) Err() error {
	if u.Reason == "" {
		return ErrParse
	}
	return fmt.Errorf("%w: %s", ErrParse, u.Reason)
}

// Extract takes the span from the first '{' to the last '}' and checks it is valid JSON.
func Extract(text string) Extraction {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Unparseable{}
	}
	candidate := text[start : end+1]
	var payload map[string]json.RawMessage
	if errJSON := json.Unmarshal([]byte(candidate), &payload); errJSON != nil {
		return Unparseable{Reason: errJSON.Error()}
	}
	return Parsed{Raw: json.RawMessage(candidate)}
}

// Draft is the roadmap content produced by the model.
type Draft struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	TotalDuration string         `json:"totalDuration"`
	Stages        []models.Stage `json:"stages"`
}

// Draft decodes the parsed object into roadmap content.
// Completion state and ids from the model are discarded.
func (p Parsed) Draft() (Draft, error) {
	var draft Draft
	if errDecode := json.Unmarshal(p.Raw, &draft); errDecode != nil {
		return Draft{}, fmt.Errorf("decode roadmap draft: %w", errDecode)
	}
	for i := range draft.Stages {
		draft.Stages[i].ID = ""
		for j := range draft.Stages[i].Topics {
			topic := &draft.Stages[i].Topics[j]
			topic.ID = ""
			topic.Completed = false
			topic.CompletedAt = nil
		}
	}
	return draft, nil
}
