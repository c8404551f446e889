package alerts

import (
	"encoding/json"
	"fmt"
	"os"
)

// Route is a chat destination for alert messages. TopicID addresses a
// forum topic inside the chat and may be zero for plain groups.
type Route struct {
	ChatID  int64 `json:"chat_id"`
	TopicID int   `json:"topic_id,omitempty"`
}

// Table maps alert types to routes. Types without an entry use the
// default route.
type Table struct {
	Default Route            `json:"default"`
	Routes  map[string]Route `json:"routes"`
}

// LoadTable reads a route table from a JSON file. Route keys are
// normalized the same way incoming alert types are, so "Engine Fault"
// and "engine_fault" name the same route.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alert routes: %w", err)
	}

	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing alert routes %s: %w", path, err)
	}
	if t.Default.ChatID == 0 {
		return nil, fmt.Errorf("alert routes %s: default route missing chat_id", path)
	}

	normalized := make(map[string]Route, len(t.Routes))
	for key, route := range t.Routes {
		if route.ChatID == 0 {
			return nil, fmt.Errorf("alert routes %s: route %q missing chat_id", path, key)
		}
		normalized[normalizeType(key)] = route
	}
	t.Routes = normalized

	return &t, nil
}

// For returns the route for an alert type, falling back to the default
// route for unknown types.
func (t *Table) For(eventType string) Route {
	if route, ok := t.Routes[normalizeType(eventType)]; ok {
		return route
	}
	return t.Default
}
