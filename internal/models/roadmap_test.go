package models

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func sampleStages(counts ...int) datatypes.JSONSlice[Stage] {
	stages := make(datatypes.JSONSlice[Stage], 0, len(counts))
	for _, count := range counts {
		stage := Stage{StageTitle: "Stage", Duration: "2 weeks"}
		for j := 0; j < count; j++ {
			stage.Topics = append(stage.Topics, Topic{
				TopicTitle: "Topic",
				Category:   TopicCategoryLanguage,
				Resources:  []string{"https://go.dev/doc"},
			})
		}
		stages = append(stages, stage)
	}
	return stages
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+filepath.Join(t.TempDir(), "models.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&User{}, &Roadmap{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{3, 5, 60},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{5, 5, 100},
	}
	for _, tc := range cases {
		if got := ProgressPercent(tc.completed, tc.total); got != tc.want {
			t.Fatalf("ProgressPercent(%d,%d)=%d, want %d", tc.completed, tc.total, got, tc.want)
		}
	}
}

func TestRecompute_DerivesCountersAndIDs(t *testing.T) {
	roadmap := Roadmap{Title: "Backend Basics", Stages: sampleStages(3, 2)}
	roadmap.TotalTopics = 99
	roadmap.Progress = 42

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	roadmap.Recompute(now)

	if roadmap.TotalTopics != 5 || roadmap.CompletedTopics != 0 || roadmap.Progress != 0 {
		t.Fatalf("unexpected counters: total=%d completed=%d progress=%d", roadmap.TotalTopics, roadmap.CompletedTopics, roadmap.Progress)
	}
	seen := map[string]struct{}{}
	for _, stage := range roadmap.Stages {
		if stage.ID == "" {
			t.Fatalf("expected stage id to be assigned")
		}
		for _, topic := range stage.Topics {
			if topic.ID == "" {
				t.Fatalf("expected topic id to be assigned")
			}
			if _, dup := seen[topic.ID]; dup {
				t.Fatalf("duplicate topic id %s", topic.ID)
			}
			seen[topic.ID] = struct{}{}
		}
	}
}

func TestRecompute_EnforcesCompletedAtInvariant(t *testing.T) {
	stamp := time.Now().UTC()
	roadmap := Roadmap{Title: "x", Stages: datatypes.JSONSlice[Stage]{{
		StageTitle: "s",
		Topics: []Topic{
			{TopicTitle: "a", Category: TopicCategoryOther, Completed: true},
			{TopicTitle: "b", Category: TopicCategoryOther, Completed: false, CompletedAt: &stamp},
		},
	}}}

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	roadmap.Recompute(now)

	topics := roadmap.Stages[0].Topics
	if topics[0].CompletedAt == nil || !topics[0].CompletedAt.Equal(now) {
		t.Fatalf("expected completed topic to carry completedAt")
	}
	if topics[1].CompletedAt != nil {
		t.Fatalf("expected incomplete topic to have nil completedAt")
	}
	if roadmap.CompletedTopics != 1 || roadmap.Progress != 50 {
		t.Fatalf("unexpected counters: completed=%d progress=%d", roadmap.CompletedTopics, roadmap.Progress)
	}
}

func TestSetTopicCompletion(t *testing.T) {
	roadmap := Roadmap{Title: "x", Stages: sampleStages(2, 1)}
	roadmap.Recompute(time.Now())
	topicID := roadmap.Stages[1].Topics[0].ID

	first := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if !roadmap.SetTopicCompletion(topicID, true, first) {
		t.Fatalf("expected topic to be found")
	}
	later := first.Add(time.Hour)
	if !roadmap.SetTopicCompletion(topicID, true, later) {
		t.Fatalf("expected topic to be found")
	}
	topic := roadmap.Stages[1].Topics[0]
	if !topic.Completed || topic.CompletedAt == nil || !topic.CompletedAt.Equal(first) {
		t.Fatalf("expected idempotent completion keeping first timestamp, got %+v", topic)
	}

	roadmap.SetTopicCompletion(topicID, false, later)
	topic = roadmap.Stages[1].Topics[0]
	if topic.Completed || topic.CompletedAt != nil {
		t.Fatalf("expected topic cleared, got %+v", topic)
	}

	if roadmap.SetTopicCompletion("missing", true, later) {
		t.Fatalf("expected unknown topic to be reported missing")
	}
}

func TestSetTopicCompletion_FirstMatchOnly(t *testing.T) {
	roadmap := Roadmap{Title: "x", Stages: datatypes.JSONSlice[Stage]{
		{StageTitle: "a", Topics: []Topic{{ID: "dup", TopicTitle: "t1", Category: TopicCategoryOther}}},
		{StageTitle: "b", Topics: []Topic{{ID: "dup", TopicTitle: "t2", Category: TopicCategoryOther}}},
	}}

	roadmap.SetTopicCompletion("dup", true, time.Now())
	if !roadmap.Stages[0].Topics[0].Completed || roadmap.Stages[1].Topics[0].Completed {
		t.Fatalf("expected only the first duplicate to be updated")
	}
}

func TestValidate_ReportsPaths(t *testing.T) {
	roadmap := Roadmap{
		SkillLevel: "expert",
		Stages: datatypes.JSONSlice[Stage]{{
			Topics: []Topic{{TopicTitle: "t", Category: "cooking"}},
		}},
	}

	err := roadmap.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"title is required", "skillLevel", "stages[0].stageTitle is required", "stages[0].topics[0].category"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestBeforeSave_PersistsDerivedFields(t *testing.T) {
	conn := openTestDB(t)

	roadmap := Roadmap{
		Title:      "Backend Basics",
		SkillLevel: SkillLevelBeginner,
		TechStack:  datatypes.NewJSONType(TechStack{Languages: []string{"Python"}}),
		Stages:     sampleStages(3, 2),
		CreatedBy:  1,
	}
	if err := conn.Create(&roadmap).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var stored Roadmap
	if err := conn.First(&stored, roadmap.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.TotalTopics != 5 || stored.CompletedTopics != 0 || stored.Progress != 0 {
		t.Fatalf("unexpected stored counters: %+v", stored)
	}
	if got := stored.TechStack.Data().Languages; len(got) != 1 || got[0] != "Python" {
		t.Fatalf("unexpected tech stack: %+v", got)
	}
	if stored.TechStack.Data().Frameworks == nil {
		t.Fatalf("expected empty lists to round-trip as empty, not nil")
	}

	for i := 0; i < 3; i++ {
		stored.SetTopicCompletion(stored.Stages[0].Topics[i].ID, true, time.Now())
	}
	stored.TotalTopics = 0
	if err := conn.Save(&stored).Error; err != nil {
		t.Fatalf("save: %v", err)
	}

	var reloaded Roadmap
	if err := conn.First(&reloaded, roadmap.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.TotalTopics != 5 || reloaded.CompletedTopics != 3 || reloaded.Progress != 60 {
		t.Fatalf("unexpected counters after save: total=%d completed=%d progress=%d", reloaded.TotalTopics, reloaded.CompletedTopics, reloaded.Progress)
	}
}

func TestBeforeSave_RejectsInvalidDocument(t *testing.T) {
	conn := openTestDB(t)

	roadmap := Roadmap{Title: "x", CreatedBy: 1, Stages: datatypes.JSONSlice[Stage]{{StageTitle: "s", Topics: []Topic{{TopicTitle: "t"}}}}}
	err := conn.Create(&roadmap).Error
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var count int64
	conn.Model(&Roadmap{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected nothing persisted, got %d rows", count)
	}
}
