package extract

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/model"
)

// parseExtraction decodes the model's response field by field so that one
// malformed field degrades the bundle instead of discarding it. The returned
// bundle's FailedFields names whatever did not parse.
func parseExtraction(text string) *model.ExtractedInfo {
	cleaned := cleanJSON(text)

	info := &model.ExtractedInfo{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		zap.L().Debug("extraction response is not a JSON object", zap.Error(err))
		info.FailedFields = []string{
			"meeting_date", "participants", "companies",
			"opportunities", "follow_ups", "key_points", "sentiment",
		}
		return info
	}

	if failed := parseField(raw, "participants", &info.Participants); failed {
		info.FailedFields = append(info.FailedFields, "participants")
	}
	if failed := parseField(raw, "companies", &info.Companies); failed {
		info.FailedFields = append(info.FailedFields, "companies")
	}
	if failed := parseField(raw, "opportunities", &info.Opportunities); failed {
		info.FailedFields = append(info.FailedFields, "opportunities")
	}
	if failed := parseField(raw, "follow_ups", &info.FollowUps); failed {
		info.FailedFields = append(info.FailedFields, "follow_ups")
	}
	if failed := parseField(raw, "key_points", &info.KeyPoints); failed {
		info.FailedFields = append(info.FailedFields, "key_points")
	}
	if failed := parseField(raw, "sentiment", &info.Sentiment); failed {
		info.FailedFields = append(info.FailedFields, "sentiment")
	}

	if msg, ok := raw["meeting_date"]; ok && string(msg) != "null" {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			info.FailedFields = append(info.FailedFields, "meeting_date")
		} else if s != "" {
			t, err := parseDate(s)
			if err != nil {
				info.FailedFields = append(info.FailedFields, "meeting_date")
			} else {
				info.MeetingDate = &t
			}
		}
	}

	return info
}

// parseField unmarshals one top-level field into dst. A missing field is not
// a failure; a present field that will not decode is.
func parseField[T any](raw map[string]json.RawMessage, key string, dst *T) bool {
	msg, ok := raw[key]
	if !ok || string(msg) == "null" {
		return false
	}
	if err := json.Unmarshal(msg, dst); err != nil {
		zap.L().Debug("extraction field failed to parse",
			zap.String("field", key),
			zap.Error(err))
		return true
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// cleanJSON strips markdown fences and surrounding prose from a response.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	text = strings.TrimSpace(text)

	// Tolerate prose around a single JSON object.
	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}

	return text
}
