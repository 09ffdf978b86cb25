package config

import (
	"fmt"
	"sort"

	"github.com/dcshock/passengerpipe/pipeline"
)

// BuildPipeline builds a pipeline.Pipeline from config and registry. Stage names in config
// must be registered; they become the pipeline's StageNames for observers.
func BuildPipeline(reg *Registry, cfg *PipelineConfig) (*pipeline.Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	stages := make([]pipeline.Stage, 0, len(cfg.Stages))
	names := make([]string, 0, len(cfg.Stages))
	for i, ref := range cfg.Stages {
		if ref.Name == "" {
			return nil, fmt.Errorf("stage %d: name required", i)
		}
		stage, ok := reg.Get(ref.Name)
		if !ok {
			return nil, fmt.Errorf("stage %d: %q not in registry", i, ref.Name)
		}
		stages = append(stages, stage)
		names = append(names, ref.Name)
	}
	return &pipeline.Pipeline{Name: cfg.Name, Stages: stages, StageNames: names}, nil
}

// BuildAllPipelines builds a pipeline.Pipeline for each entry in multi. Keys are pipeline names.
// If a pipeline config's Name is empty, the map key is used as the pipeline name.
func BuildAllPipelines(reg *Registry, multi *MultiPipelineConfig) (map[string]*pipeline.Pipeline, error) {
	if multi == nil {
		return nil, fmt.Errorf("MultiPipelineConfig is nil")
	}
	out := make(map[string]*pipeline.Pipeline, len(multi.Pipelines))
	for _, name := range sortedKeys(multi.Pipelines) {
		cfg := multi.Pipelines[name]
		if cfg.Name == "" {
			cfg.Name = name
		}
		p, err := BuildPipeline(reg, &cfg)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}

// BuildSequence builds a pipeline.Sequence from a sequence config by looking up the named pipelines
// in the built pipeline map. Each name in seq.Pipelines must exist in builtPipelines.
func BuildSequence(seq *SequenceConfig, builtPipelines map[string]*pipeline.Pipeline) (*pipeline.Sequence, error) {
	if seq == nil {
		return nil, fmt.Errorf("SequenceConfig is nil")
	}
	out := make([]*pipeline.Pipeline, 0, len(seq.Pipelines))
	for i, name := range seq.Pipelines {
		p, ok := builtPipelines[name]
		if !ok {
			return nil, fmt.Errorf("sequence %q pipeline %d: %q not in built pipelines", seq.Name, i, name)
		}
		out = append(out, p)
	}
	return &pipeline.Sequence{Name: seq.Name, Pipelines: out}, nil
}

// BuildAllSequences builds a pipeline.Sequence for each entry in multi.Sequences using the given built pipelines.
func BuildAllSequences(multi *MultiPipelineConfig, builtPipelines map[string]*pipeline.Pipeline) (map[string]*pipeline.Sequence, error) {
	if multi == nil || len(multi.Sequences) == 0 {
		return map[string]*pipeline.Sequence{}, nil
	}
	out := make(map[string]*pipeline.Sequence, len(multi.Sequences))
	for _, name := range sortedKeys(multi.Sequences) {
		cfg := multi.Sequences[name]
		if cfg.Name == "" {
			cfg.Name = name
		}
		seq, err := BuildSequence(&cfg, builtPipelines)
		if err != nil {
			return nil, fmt.Errorf("sequence %q: %w", name, err)
		}
		out[name] = seq
	}
	return out, nil
}

// sortedKeys keeps build errors deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
