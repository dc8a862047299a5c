package platform

import (
	"os"
	"path/filepath"

	"codeberg.org/mutker/wearsim/internal/errors"
	"codeberg.org/mutker/wearsim/internal/trace"
	"gopkg.in/yaml.v3"
)

type redundancySpec struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

type traceSpec struct {
	File   string   `yaml:"file"`
	Failed []string `yaml:"failed"`
}

type unitSpec struct {
	Name       string             `yaml:"name"`
	Kind       string             `yaml:"kind"`
	Redundancy *redundancySpec    `yaml:"redundancy"`
	Defaults   map[string]float64 `yaml:"defaults"`
	Traces     []traceSpec        `yaml:"traces"`
}

type groupSpec struct {
	Name     string      `yaml:"name"`
	Failures int         `yaml:"failures"`
	Groups   []groupSpec `yaml:"groups"`
	Units    []string    `yaml:"units"`
}

type platformSpec struct {
	Units  []unitSpec `yaml:"units"`
	System groupSpec  `yaml:"system"`
}

// Load reads a platform description: the unit definitions with their bound
// traces and the failure dependency tree over them. Trace file paths are
// resolved relative to the description file. Malformed descriptions (unknown
// unit kinds or redundancy types, units referenced but never defined) are
// fatal.
func Load(path string, delim rune) (Component, []*Unit, error) {
	errFactory := errors.New()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errFactory.Wrap(errors.ErrReadPlatform, err)
	}

	var spec platformSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, nil, errFactory.Wrap(errors.ErrParsePlatform, err)
	}
	if len(spec.Units) == 0 {
		return nil, nil, errFactory.WithMessage(errors.ErrParsePlatform, "platform defines no units")
	}

	baseDir := filepath.Dir(path)

	units := make([]*Unit, 0, len(spec.Units))
	byName := make(map[string]*Unit, len(spec.Units))
	for i, us := range spec.Units {
		if us.Name == "" {
			return nil, nil, errFactory.WithMessage(errors.ErrParsePlatform, "unit without a name")
		}
		if _, dup := byName[us.Name]; dup {
			return nil, nil, errFactory.WithData(errors.ErrParsePlatform, "duplicate unit "+us.Name)
		}

		kind, err := KindFromString(us.Kind)
		if err != nil {
			return nil, nil, err
		}

		red := Redundancy{Serial: true, Copies: 1}
		if us.Redundancy != nil {
			switch us.Redundancy.Type {
			case "serial":
				red.Serial = true
			case "parallel":
				red.Serial = false
			default:
				return nil, nil, errFactory.WithData(errors.ErrParsePlatform, "unknown redundancy type "+us.Redundancy.Type)
			}
			red.Copies = us.Redundancy.Count
		}

		traces := map[Config][]trace.DataPoint{}
		for _, ts := range us.Traces {
			file := ts.File
			if !filepath.IsAbs(file) {
				file = filepath.Join(baseDir, file)
			}
			points, err := trace.Parse(file, delim)
			if err != nil {
				return nil, nil, err
			}
			traces[ConfigOf(ts.Failed...)] = points
		}

		u := NewUnit(us.Name, i, kind, red, us.Defaults, traces)
		units = append(units, u)
		byName[us.Name] = u
	}

	root, err := buildGroup(spec.System, byName)
	if err != nil {
		return nil, nil, err
	}

	return root, units, nil
}

func buildGroup(spec groupSpec, byName map[string]*Unit) (*Group, error) {
	errFactory := errors.New()

	if spec.Name == "" {
		return nil, errFactory.WithMessage(errors.ErrParsePlatform, "group without a name")
	}

	children := make([]Component, 0, len(spec.Groups)+len(spec.Units))
	for _, gs := range spec.Groups {
		child, err := buildGroup(gs, byName)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	for _, name := range spec.Units {
		u, ok := byName[name]
		if !ok {
			return nil, errFactory.WithData(errors.ErrUnknownUnit, name)
		}
		children = append(children, u)
	}
	if len(children) == 0 {
		return nil, errFactory.WithData(errors.ErrParsePlatform, "group "+spec.Name+" has no children")
	}

	return NewGroup(spec.Name, spec.Failures, children...), nil
}
