package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Scene struct {
	SceneNumber       int     `json:"sceneNumber"`
	Duration          float64 `json:"duration"`
	VisualDescription string  `json:"visualDescription"`
	TextOverlay       string  `json:"textOverlay,omitempty"`
	AudioDescription  string  `json:"audioDescription,omitempty"`
}

type VideoScript struct {
	Title         string  `json:"title"`
	TotalDuration float64 `json:"totalDuration"`
	Scenes        []Scene `json:"scenes"`
	Style         string  `json:"style"`
	ColorScheme   string  `json:"colorScheme,omitempty"`
}

// SceneDuration sums the scene durations.
func (s *VideoScript) SceneDuration() float64 {
	var total float64
	for _, scene := range s.Scenes {
		total += scene.Duration
	}
	return total
}

func (s VideoScript) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *VideoScript) Scan(src interface{}) error {
	return scanJSON(src, s)
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dest)
	}
}
