// Package out renders CLI envelopes as JSON or key=value lines.
package out

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/ggonzalez94/swapsage/internal/model"
)

const (
	ModeJSON  = "json"
	ModePlain = "plain"
)

type Options struct {
	Mode         string
	ResultsOnly  bool
	SelectFields []string
}

func Render(w io.Writer, env model.Envelope, opts Options) error {
	data := env.Data
	if len(opts.SelectFields) > 0 {
		data = project(data, opts.SelectFields)
	}
	plain := opts.Mode == ModePlain

	if opts.ResultsOnly {
		if !plain {
			return encode(w, data)
		}
		return renderPlain(w, data)
	}

	if !plain {
		env.Data = data
		return encode(w, env)
	}

	view := map[string]any{
		"success": env.Success,
		"data":    data,
		"meta":    env.Meta,
	}
	if env.Error != nil {
		view["error"] = env.Error
	}
	return renderPlain(w, view)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderPlain(w io.Writer, data any) error {
	v := reflect.ValueOf(data)
	if !v.IsValid() {
		_, err := fmt.Fprintln(w, "null")
		return err
	}

	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		if v.Len() == 0 {
			_, err := fmt.Fprintln(w, "[]")
			return err
		}
		for i := 0; i < v.Len(); i++ {
			line, err := toLine(normalizeValue(v.Index(i).Interface()))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}

	line, err := toLine(normalizeValue(data))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, line)
	return err
}

// project keeps only the named top-level fields of an object or of each
// object in a list.
func project(data any, fields []string) any {
	switch t := normalizeValue(data).(type) {
	case []any:
		items := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				items = append(items, pick(m, fields))
			}
		}
		return items
	case map[string]any:
		return pick(t, fields)
	default:
		return t
	}
}

func pick(m map[string]any, fields []string) map[string]any {
	picked := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := m[f]; ok {
			picked[f] = v
		}
	}
	return picked
}

// normalizeValue round-trips v through JSON so structs honour their tags.
func normalizeValue(v any) any {
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var generic any
	if err := json.Unmarshal(buf, &generic); err != nil {
		return v
	}
	return generic
}

func toLine(v any) (string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		buf, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(buf), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " "), nil
}
