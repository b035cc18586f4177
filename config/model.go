package config

import "fmt"

// DefaultArtifactPath is where training writes and serving reads the model.
const DefaultArtifactPath = "models/solar_model.json"

// ModelConfig locates the trained forecast artifact.
type ModelConfig struct {
	ArtifactPath string `json:"artifact_path"`
}

func (c *ModelConfig) SetDefaults() {
	if c.ArtifactPath == "" {
		c.ArtifactPath = DefaultArtifactPath
	}
}

func (c ModelConfig) Validate() error {
	if c.ArtifactPath == "" {
		return fmt.Errorf("artifact_path is required")
	}
	return nil
}
