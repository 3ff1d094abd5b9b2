package models

import (
	"time"
)

// Capability describes known model abilities surfaced to clients and the admin UI.
type Capability struct {
	Modalities    []string `json:"modalities,omitempty"` // e.g., ["text"], ["image","text"]
	ContextLength int      `json:"context_length,omitempty"`
	Images        bool     `json:"images,omitempty"`
	Thinking      string   `json:"thinking,omitempty"` // none/auto/max
	Source        string   `json:"source,omitempty"`   // manual|upstream|probe
	UpdatedAt     int64    `json:"updated_at,omitempty"`
}

// DefaultCapabilities builds a coarse capability map from base descriptors.
func DefaultCapabilities() map[string]Capability {
	out := make(map[string]Capability)
	now := time.Now().Unix()
	for _, base := range DefaultBaseModels() {
		b := BaseFromFeature(base)
		if _, ok := out[b]; ok {
			continue
		}
		desc := DescribeBase(b)
		mods := []string{"text"}
		if desc.SupportsImage {
			mods = []string{"text", "image"}
		}
		think := desc.SuggestedThinking
		if think == "" {
			think = "auto"
		}
		out[b] = Capability{Modalities: mods, ContextLength: 1000000, Images: desc.SupportsImage, Thinking: think, Source: "upstream", UpdatedAt: now}
	}
	return out
}
