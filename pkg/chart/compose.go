// Package chart finalizes generated Vega-Lite specs for rendering and
// summarizes query results.
package chart

import (
	"encoding/json"
	"fmt"

	"github.com/vizgen/vizgen-engine/pkg/prompts"
)

const (
	// DefaultWidth and DefaultHeight apply when the generated spec does
	// not size itself.
	DefaultWidth  = 700
	DefaultHeight = 400

	// LargeDatasetThreshold is the row count above which per-point
	// tooltips are disabled and a sampling transform is appended.
	LargeDatasetThreshold = 1000
)

// Options control how a generated spec is finalized.
type Options struct {
	// Responsive switches from fixed sizing to container width with
	// fit autosizing.
	Responsive bool
	// Tooltip toggles per-point tooltips. Defaults control this via
	// DefaultOptions; the zero value disables tooltips.
	Tooltip bool
	// Theme selects a named style overlay. Empty or "default" applies
	// no overlay.
	Theme string
}

// DefaultOptions returns the options used when the caller passes none.
func DefaultOptions() Options {
	return Options{Tooltip: true}
}

// themes are static config overlays keyed by name.
var themes = map[string]map[string]any{
	"dark": {
		"background": "#1f1f1f",
		"title":      map[string]any{"color": "#ffffff", "fontSize": 16},
		"axis": map[string]any{
			"labelColor":  "#d4d4d4",
			"titleColor":  "#ffffff",
			"gridColor":   "#3a3a3a",
			"domainColor": "#5a5a5a",
		},
		"legend": map[string]any{"labelColor": "#d4d4d4", "titleColor": "#ffffff"},
		"view":   map[string]any{"stroke": "transparent"},
	},
	"minimal": {
		"background": "#ffffff",
		"axis": map[string]any{
			"grid":        false,
			"ticks":       false,
			"domainColor": "#e0e0e0",
		},
		"view": map[string]any{"stroke": "transparent"},
	},
	"professional": {
		"background": "#fafafa",
		"title":      map[string]any{"font": "Georgia", "fontSize": 18, "anchor": "start"},
		"axis": map[string]any{
			"labelFont":  "Helvetica",
			"titleFont":  "Helvetica",
			"labelColor": "#333333",
			"titleColor": "#333333",
			"gridColor":  "#e8e8e8",
		},
		"range": map[string]any{
			"category": []any{"#1f4e79", "#2e75b6", "#5b9bd5", "#9dc3e6", "#c55a11", "#ed7d31"},
		},
	},
}

// Enhance injects rows into a generated Vega-Lite spec and applies
// sizing, tooltip, and theme policy. The input spec is never mutated;
// all work happens on a deep copy. Zero rows yield a placeholder spec
// instead of an empty chart of the requested type.
func Enhance(spec map[string]any, rows []map[string]any, opts Options) (map[string]any, error) {
	if len(rows) == 0 {
		return placeholderSpec(), nil
	}

	out, err := deepCopy(spec)
	if err != nil {
		return nil, fmt.Errorf("copy chart spec: %w", err)
	}

	out["data"] = map[string]any{"values": rowsToValues(rows)}

	applySizing(out, opts.Responsive)

	tooltip := opts.Tooltip
	if len(rows) > LargeDatasetThreshold {
		tooltip = false
		appendSampleTransform(out, LargeDatasetThreshold)
	}
	setTooltip(out, tooltip)

	if overlay, ok := themes[opts.Theme]; ok {
		// Copy the overlay so callers mutating the returned spec cannot
		// corrupt the shared theme, and merge over any config the
		// generated spec already carries.
		themed, err := deepCopy(overlay)
		if err != nil {
			return nil, fmt.Errorf("copy theme overlay: %w", err)
		}
		if existing, ok := out["config"].(map[string]any); ok {
			for k, v := range themed {
				existing[k] = v
			}
		} else {
			out["config"] = themed
		}
	}

	return out, nil
}

// placeholderSpec is the fixed zero-row rendering: a text mark with an
// explanatory title, never an empty chart of the requested type.
func placeholderSpec() map[string]any {
	return map[string]any{
		"$schema": prompts.VegaLiteSchemaURL,
		"title":   "No data found for this query",
		"width":   DefaultWidth,
		"height":  DefaultHeight,
		"data":    map[string]any{"values": []any{}},
		"mark": map[string]any{
			"type":     "text",
			"text":     "The query returned no rows. Try broadening your question.",
			"fontSize": 16,
			"color":    "#888888",
		},
	}
}

// IsPlaceholder reports whether a spec is the zero-row placeholder.
func IsPlaceholder(spec map[string]any) bool {
	mark, ok := spec["mark"].(map[string]any)
	if !ok {
		return false
	}
	data, _ := spec["data"].(map[string]any)
	values, _ := data["values"].([]any)
	return mark["type"] == "text" && len(values) == 0
}

func applySizing(spec map[string]any, responsive bool) {
	if responsive {
		spec["width"] = "container"
		spec["autosize"] = map[string]any{"type": "fit", "contains": "padding"}
	} else if _, ok := spec["width"]; !ok {
		spec["width"] = DefaultWidth
	}
	if _, ok := spec["height"]; !ok {
		spec["height"] = DefaultHeight
	}
}

// setTooltip normalizes both mark forms. A string mark like "bar"
// becomes {"type": "bar", "tooltip": ...}.
func setTooltip(spec map[string]any, enabled bool) {
	switch mark := spec["mark"].(type) {
	case string:
		spec["mark"] = map[string]any{"type": mark, "tooltip": enabled}
	case map[string]any:
		mark["tooltip"] = enabled
	}
}

func appendSampleTransform(spec map[string]any, limit int) {
	transforms, _ := spec["transform"].([]any)
	spec["transform"] = append(transforms, map[string]any{"sample": limit})
}

func rowsToValues(rows []map[string]any) []any {
	values := make([]any, len(rows))
	for i, row := range rows {
		values[i] = row
	}
	return values
}

// deepCopy clones a spec through a JSON round trip so nested maps are
// not shared with the input.
func deepCopy(spec map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
