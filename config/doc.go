// Package config provides the stage registry, the YAML pipeline definitions and
// the run settings.
//
// Register stages by name, then define pipelines in YAML that reference those
// names, and sequences that reference pipelines:
//
//	pipelines:
//	  ingest:
//	    stages: [load, drop-columns, persist-processed]
//	  preprocess:
//	    stages:
//	      - load
//	      - name: impute-missing
//	      - split-name
//	      - persist-interim
//	sequences:
//	  all:
//	    pipelines: [ingest, preprocess]
//
// Build pipelines with BuildAllPipelines(registry, config) and sequences with
// BuildAllSequences. DefaultPipelines returns the definition embedded in the
// binary.
//
// Run settings (input paths, output root, logging, metrics, run store) are read
// with Load from a YAML settings file, default config/params.yaml, and may be
// overridden from the environment with the PASSENGERPIPE_ prefix, e.g.
// PASSENGERPIPE_DATA_TRAIN_PATH.
package config
