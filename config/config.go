package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed pipelines.yaml
var defaultPipelinesYAML []byte

// PipelineConfig is the root structure for a pipeline definition (e.g. from YAML).
type PipelineConfig struct {
	Name   string     `yaml:"name"`
	Stages []StageRef `yaml:"stages"`
}

// StageRef is a single stage entry. In YAML, a stage can be written as:
//   - load
//   - name: impute-missing
type StageRef struct {
	Name string `yaml:"name"`
}

// UnmarshalYAML allows a stage to be a string (stage name only) or a struct.
func (s *StageRef) UnmarshalYAML(value *yaml.Node) error {
	var nameOnly string
	if err := value.Decode(&nameOnly); err == nil {
		s.Name = nameOnly
		return nil
	}
	type raw StageRef
	return value.Decode((*raw)(s))
}

// ParsePipelineConfig parses YAML bytes into a single PipelineConfig.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SequenceConfig names pipelines to run one after another with the same payload.
type SequenceConfig struct {
	Name      string   `yaml:"name"`
	Pipelines []string `yaml:"pipelines"`
}

// MultiPipelineConfig is the root structure for a file that defines multiple pipelines
// and sequences. Keys are names; an empty Name inside an entry defaults to its key.
type MultiPipelineConfig struct {
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
	Sequences map[string]SequenceConfig `yaml:"sequences"`
}

// ParseMultiPipelineConfig parses YAML bytes that contain a "pipelines" map from name
// to pipeline config and an optional "sequences" map.
func ParseMultiPipelineConfig(data []byte) (*MultiPipelineConfig, error) {
	var cfg MultiPipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPipelines returns the built-in ingest/preprocess definitions.
func DefaultPipelines() *MultiPipelineConfig {
	cfg, err := ParseMultiPipelineConfig(defaultPipelinesYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded pipelines.yaml: %v", err))
	}
	return cfg
}

// LoadPipelines reads pipeline definitions from path, or returns
// DefaultPipelines when path is empty.
func LoadPipelines(path string) (*MultiPipelineConfig, error) {
	if path == "" {
		return DefaultPipelines(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipelines %s: %w", path, err)
	}
	cfg, err := ParseMultiPipelineConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse pipelines %s: %w", path, err)
	}
	return cfg, nil
}
