package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RoadmapIDs stores a user's roadmap references as a JSON array.
type RoadmapIDs []uint64

// Value implements driver.Valuer for database serialization.
func (ids RoadmapIDs) Value() (driver.Value, error) {
	cleaned := ids.Clean()
	data, errMarshal := json.Marshal([]uint64(cleaned))
	if errMarshal != nil {
		return nil, fmt.Errorf("roadmap ids marshal: %w", errMarshal)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database deserialization.
func (ids *RoadmapIDs) Scan(value any) error {
	if ids == nil {
		return fmt.Errorf("roadmap ids scan: nil receiver")
	}
	if value == nil {
		*ids = RoadmapIDs{}
		return nil
	}

	var data []byte
	switch typed := value.(type) {
	case []byte:
		data = typed
	case string:
		data = []byte(typed)
	default:
		return fmt.Errorf("roadmap ids scan: unsupported type %T", value)
	}
	if len(data) == 0 {
		*ids = RoadmapIDs{}
		return nil
	}

	var list []uint64
	if errList := json.Unmarshal(data, &list); errList != nil {
		return fmt.Errorf("roadmap ids scan: invalid json: %w", errList)
	}
	*ids = RoadmapIDs(list).Clean()
	return nil
}

// Clean removes zero values and duplicates, keeping first occurrences in order.
func (ids RoadmapIDs) Clean() RoadmapIDs {
	if len(ids) == 0 {
		return RoadmapIDs{}
	}
	seen := make(map[uint64]struct{}, len(ids))
	cleaned := make(RoadmapIDs, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	return cleaned
}

// Contains reports whether id is present.
func (ids RoadmapIDs) Contains(id uint64) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// With returns a copy with id appended unless it is already present.
func (ids RoadmapIDs) With(id uint64) RoadmapIDs {
	out := append(RoadmapIDs{}, ids.Clean()...)
	if id == 0 || out.Contains(id) {
		return out
	}
	return append(out, id)
}

// Without returns a copy with every occurrence of id removed.
func (ids RoadmapIDs) Without(id uint64) RoadmapIDs {
	out := make(RoadmapIDs, 0, len(ids))
	for _, existing := range ids.Clean() {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
