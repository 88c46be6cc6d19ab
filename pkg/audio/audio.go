package audio

import "path/filepath"

// Artifact describes one audio file produced or consumed by the pipeline.
type Artifact struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"` // seconds
	Size     int64   `json:"size"`     // bytes
	Format   string  `json:"format"`
}

// WebPath maps the artifact's on-disk location to the URL path the
// static file server exposes it under.
func (a *Artifact) WebPath() string {
	if a == nil {
		return ""
	}
	return "/storage/audio/" + filepath.Base(a.Path)
}
