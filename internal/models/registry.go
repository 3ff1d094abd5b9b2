package models

import (
	"strings"

	"antigravity-gateway/internal/config"
)

// RegistryEntry describes a model exposure entry managed by admin UI.
type RegistryEntry struct {
	ID            string `json:"id"`   // final exposed id (with prefix/suffix)
	Base          string `json:"base"` // base model, e.g., gemini-2.5-pro
	FakeStreaming bool   `json:"fake_streaming"`
	AntiTrunc     bool   `json:"anti_truncation"`
	Thinking      string `json:"thinking"` // "auto","none","low","medium","high","max"
	Search        bool   `json:"search"`
	Image         bool   `json:"image"`  // hint for UI; id still determines behavior
	Stream        bool   `json:"stream"` // prefer streaming when available
	Enabled       bool   `json:"enabled"`
	Upstream      string `json:"upstream"`        // expected "code_assist"
	Group         string `json:"group,omitempty"` // optional group id/name
	// Shown by the admin UI; does not participate in routing.
	DisabledReason string `json:"disabled_reason,omitempty"`
}

const groupsConfigKey = "model_groups"

// GroupEntry represents a simple group for organizing models in UI.
type GroupEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	Enabled     bool   `json:"enabled"`
}

// GroupsConfigKey returns the config key used to persist model groups.
func GroupsConfigKey() string { return groupsConfigKey }

// BuildVariantID composes the exposed model id from options using existing naming scheme.
func BuildVariantID(base string, fake, anti bool, thinking string, search bool) string {
	id := base
	switch strings.ToLower(strings.TrimSpace(thinking)) {
	case "max", "high":
		id += "-maxthinking"
	case "none":
		id += "-nothinking"
	}
	if search {
		id += "-search"
	}
	if fake {
		id = "fake-stream/" + id
	}
	if anti {
		id = "anti-truncation/" + id
	}
	return id
}

// ExposedModelIDs returns the list of models exposed to /v1/models, built
// from the curated default registry with any configured model IDs removed.
func ExposedModelIDs(cfg *config.Config) []string {
	defs := DefaultRegistry()
	out := make([]string, 0, len(defs))
	for _, e := range defs {
		id := e.ID
		if strings.TrimSpace(id) == "" {
			id = BuildVariantID(e.Base, e.FakeStreaming, e.AntiTrunc, e.Thinking, e.Search)
		}
		out = append(out, id)
	}
	if cfg == nil {
		return out
	}
	return filterDisabled(out, cfg.DisabledModels)
}

// ActiveEntries returns enabled registry entries with computed IDs.
func ActiveEntries(cfg *config.Config) []RegistryEntry {
	entries := DefaultRegistry()
	out := make([]RegistryEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = BuildVariantID(e.Base, e.FakeStreaming, e.AntiTrunc, e.Thinking, e.Search)
		}
		if strings.TrimSpace(e.Base) == "" {
			e.Base = BaseFromFeature(id)
		}
		e.ID = id
		out = append(out, e)
	}
	return out
}

func filterDisabled(ids []string, disabled []string) []string {
	if len(disabled) == 0 {
		return ids
	}
	off := map[string]struct{}{}
	for _, d := range disabled {
		if d != "" {
			off[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := off[id]; ok {
			continue
		}
		out = append(out, id)
	}
	return out
}

// DefaultRegistry returns a small curated set of sensible defaults.
func DefaultRegistry() []RegistryEntry {
	return []RegistryEntry{
		{Base: "gemini-2.5-pro", Thinking: "auto", Stream: true, Enabled: true, Upstream: "code_assist"},
		{Base: "gemini-2.5-pro", AntiTrunc: true, Thinking: "auto", Stream: true, Enabled: true, Upstream: "code_assist"},
		{Base: "gemini-2.5-pro", Thinking: "max", Stream: true, Enabled: true, Upstream: "code_assist"},
		{Base: "gemini-2.5-flash", Thinking: "auto", Stream: true, Enabled: true, Upstream: "code_assist"},
		{Base: "gemini-2.5-flash-image", Image: true, Stream: false, Enabled: true, Upstream: "code_assist"},
		{Base: "gemini-2.5-flash-image-preview", Image: true, Stream: false, Enabled: true, Upstream: "code_assist"},
	}
}
