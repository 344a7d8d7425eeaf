package remote

import (
	"encoding/json"
	"strings"
)

type errorEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail extracts the human-readable detail from an error body.
// The service sends either {"detail": "text"} or, for request validation
// failures, {"detail": [{"loc": [...], "msg": "..."}]}.
func parseDetail(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(env.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var issues []validationIssue
	if err := json.Unmarshal(env.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, is := range issues {
			msg := strings.TrimSpace(is.Msg)
			if msg == "" {
				continue
			}
			if field := lastLoc(is.Loc); field != "" {
				msg = field + ": " + msg
			}
			msgs = append(msgs, msg)
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
