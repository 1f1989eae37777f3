package form

import (
	"sort"
	"strings"
)

// ServerErrors is the outcome of ApplyServerErrors.
type ServerErrors struct {
	// Fields maps the registered field paths that received errors to their
	// messages.
	Fields map[string][]string
	// Form holds the messages that could not be attached to a field.
	Form []string
}

// ApplyServerErrors attaches an error payload returned by a backend to the
// registered fields as manual errors. Keys may be dotted paths, JSON pointers
// or bracketed paths and may carry envelope segments such as "body" in front
// of the field path; a key nested below a field is attached to that field.
// Keys that match no field are returned as form-level messages.
func (c *Controller) ApplyServerErrors(payload map[string][]string) ServerErrors {
	out := ServerErrors{Fields: map[string][]string{}}
	if len(payload) == 0 {
		return out
	}

	c.mu.Lock()
	registered := make([]string, 0, len(c.fields))
	for key := range c.fields {
		if path, ok := c.pathOf(key); ok {
			registered = append(registered, path)
		}
	}
	c.mu.Unlock()

	raws := make([]string, 0, len(payload))
	for raw := range payload {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	for _, raw := range raws {
		messages := uniqueMessages(payload[raw])
		if len(messages) == 0 {
			continue
		}
		path := ""
		if !isFormLevelKey(raw) {
			path = matchServerPath(NormalizePath(raw), registered)
		}
		if path == "" {
			out.Form = append(out.Form, messages...)
			continue
		}
		out.Fields[path] = append(out.Fields[path], messages...)
	}

	for path, messages := range out.Fields {
		messages = uniqueMessages(messages)
		out.Fields[path] = messages
		if err := c.SetError(path, strings.Join(messages, "; ")); err != nil {
			delete(out.Fields, path)
			out.Form = append(out.Form, messages...)
		}
	}
	out.Form = uniqueMessages(out.Form)
	return out
}

// matchServerPath returns the longest registered path that equals, or is a
// prefix of, path once leading envelope segments are dropped.
func matchServerPath(path string, registered []string) string {
	if path == "" {
		return ""
	}
	segments := strings.Split(path, ".")
	best := ""
	for i := range segments {
		candidate := strings.Join(segments[i:], ".")
		for _, p := range registered {
			if (candidate == p || strings.HasPrefix(candidate, p+".")) && len(p) > len(best) {
				best = p
			}
		}
	}
	return best
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}

func uniqueMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
