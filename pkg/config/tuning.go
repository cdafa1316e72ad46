// Package config loads optional JSON tuning files for the detector.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"retrodetect/pkg/photo"
	"retrodetect/pkg/retrodetect"
)

// TuningConfig holds optional overrides. Unset fields keep their defaults.
type TuningConfig struct {
	HistoryDepth       *int  `json:"history_depth,omitempty"`
	CandidateCount     *int  `json:"candidate_count,omitempty"`
	BlockSize          *int  `json:"block_size,omitempty"`
	BlockOffset        *int  `json:"block_offset,omitempty"`
	ExactDilation      *bool `json:"exact_dilation,omitempty"`
	TruncateBackground *bool `json:"truncate_background,omitempty"`

	Threshold  *float64 `json:"threshold,omitempty"`
	SourceName *string  `json:"source_name,omitempty"`
	After      *string  `json:"after,omitempty"`  // HH:MM:SS
	Before     *string  `json:"before,omitempty"` // HH:MM:SS
	Extensions *string  `json:"extensions,omitempty"`
}

func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the set fields. Detector parameters are checked together
// after being applied to the defaults.
func (c *TuningConfig) Validate() error {
	p := retrodetect.NewParams()
	c.ApplyTo(p)
	if err := p.Validate(); err != nil {
		return err
	}

	if c.After != nil {
		if _, err := photo.ParseClock(*c.After); err != nil {
			return fmt.Errorf("after: %w", err)
		}
	}
	if c.Before != nil {
		if _, err := photo.ParseClock(*c.Before); err != nil {
			return fmt.Errorf("before: %w", err)
		}
	}
	if c.SourceName != nil && *c.SourceName == "" {
		return fmt.Errorf("source_name must not be empty")
	}
	return nil
}

// ApplyTo overwrites the detector parameters that are set in c.
func (c *TuningConfig) ApplyTo(p *retrodetect.Params) {
	if c.HistoryDepth != nil {
		p.HistoryDepth = *c.HistoryDepth
	}
	if c.CandidateCount != nil {
		p.CandidateCount = *c.CandidateCount
	}
	if c.BlockSize != nil {
		p.BlockSize = *c.BlockSize
	}
	if c.BlockOffset != nil {
		p.BlockOffset = *c.BlockOffset
	}
	if c.ExactDilation != nil {
		p.ExactDilation = *c.ExactDilation
	}
	if c.TruncateBackground != nil {
		p.TruncateBackground = *c.TruncateBackground
	}
}

// Params returns the defaults with c applied.
func (c *TuningConfig) Params() *retrodetect.Params {
	p := retrodetect.NewParams()
	c.ApplyTo(p)
	return p
}
