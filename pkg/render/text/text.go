// Package text serializes form snapshots as JSON, form-urlencoded or pretty
// dotted lines.
package text

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Format controls how values are serialized.
type Format string

const (
	// FormatJSON emits application/json payloads.
	FormatJSON Format = "json"
	// FormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	FormatFormURLEncoded Format = "form"
	// FormatPretty emits one `path=value` line per leaf.
	FormatPretty Format = "pretty"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPretty, nil
	case FormatJSON, FormatFormURLEncoded, FormatPretty:
		return f, nil
	default:
		return "", fmt.Errorf("text: unknown format %q", s)
	}
}

// ContentType reports the media type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case FormatPretty:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Encode serializes a values tree.
func Encode(format Format, values map[string]any) ([]byte, error) {
	switch format {
	case FormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case FormatPretty:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(jsonSafe(values))
	}
}

// State is the serializable view of a form: its values, whole-form meta and
// the error messages by path.
type State struct {
	Values map[string]any    `json:"values"`
	Meta   form.FormMeta     `json:"meta"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Snapshot captures the current state of ctrl.
func Snapshot(ctrl *form.Controller) State {
	meta := ctrl.FormState()
	return State{
		Values: ctrl.GetValues(),
		Meta:   meta,
		Errors: meta.Errors.Messages(),
	}
}

// EncodeState serializes a State. JSON keeps the structure; the other
// formats flatten values, flags and errors into one list of leaves.
func EncodeState(format Format, st State) ([]byte, error) {
	if format == FormatJSON {
		return json.Marshal(struct {
			Values any               `json:"values"`
			Meta   form.FormMeta     `json:"meta"`
			Errors map[string]string `json:"errors,omitempty"`
		}{jsonSafe(st.Values), st.Meta, st.Errors})
	}
	flat := map[string]any{
		"values": st.Values,
		"state": map[string]any{
			"isDirty":            st.Meta.IsDirty,
			"isValid":            st.Meta.IsValid,
			"isValidating":       st.Meta.IsValidating,
			"isSubmitting":       st.Meta.IsSubmitting,
			"isSubmitted":        st.Meta.IsSubmitted,
			"isSubmitSuccessful": st.Meta.IsSubmitSuccessful,
			"submitCount":        st.Meta.SubmitCount,
		},
	}
	if len(st.Errors) > 0 {
		errs := make(map[string]any, len(st.Errors))
		for path, msg := range st.Errors {
			errs[path] = msg
		}
		flat["errors"] = errs
	}
	return Encode(format, flat)
}

// ErrorLines renders field errors as sorted `path: message` lines.
func ErrorLines(errs validation.Errors) []string {
	paths := errs.Paths()
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		out = append(out, path+": "+errs[path].Message)
	}
	return out
}

// Stream writes every watch event of ctrl to w, one encoded snapshot per
// event. Call Unsubscribe on the result to stop.
func Stream(ctrl *form.Controller, w io.Writer, format Format, logger *zap.Logger) *form.Subscription {
	if logger == nil {
		logger = zap.NewNop()
	}
	var mu sync.Mutex
	return ctrl.Subscribe(func(ev form.WatchEvent) {
		payload, err := Encode(format, ev.Values)
		if err != nil {
			logger.Warn("watch event not encoded", zap.String("kind", ev.Kind.String()), zap.Error(err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		header := fmt.Sprintf("# %s %s", ev.Kind, ev.Path)
		if _, err := fmt.Fprintf(w, "%s\n%s\n", strings.TrimSpace(header), strings.TrimRight(string(payload), "\n")); err != nil {
			logger.Warn("watch event not written", zap.Error(err))
		}
	})
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			flatten(join(prefix, key), val, out)
		}
	case []any:
		for idx, val := range v {
			flatten(join(prefix, strconv.Itoa(idx)), val, out)
		}
	default:
		out.Set(prefix, scalar(v))
	}
}

func prettyPrint(values map[string]any) string {
	var lines []string
	writePretty(&lines, "", values)
	sort.Strings(lines)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func writePretty(lines *[]string, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			writePretty(lines, join(prefix, key), val)
		}
	case []any:
		for idx, val := range v {
			writePretty(lines, join(prefix, strconv.Itoa(idx)), val)
		}
	default:
		if prefix != "" {
			*lines = append(*lines, prefix+"="+scalar(v))
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func scalar(v any) string {
	switch t := v.(type) {
	case time.Time:
		return validation.FormatValue(t)
	case float64:
		return validation.FormatValue(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// jsonSafe replaces NaN numbers with nil; encoding/json style encoders
// reject them.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return nil
		}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = jsonSafe(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = jsonSafe(item)
		}
		return out
	}
	return v
}
