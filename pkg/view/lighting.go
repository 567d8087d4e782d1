package view

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/plinth3d/plinth/pkg/models"
)

// Preset names one of the four fixed lighting setups.
type Preset int

const (
	PresetNeutral Preset = iota
	PresetDark           // dark background
	PresetLightCool      // light, slightly cool background
	PresetMetal          // moody background, strong key light
)

func (p Preset) String() string {
	switch p {
	case PresetDark:
		return "dark"
	case PresetLightCool:
		return "light-cool"
	case PresetMetal:
		return "metal"
	default:
		return "neutral"
	}
}

// Thresholds are the classification band edges on the material means.
// Empirical defaults; override via config.
type Thresholds struct {
	DarkBelow  float64 // mean luminance below this picks the dark preset
	LightAbove float64 // mean luminance above this picks the light preset
	MetalAbove float64 // mean metalness above this (mid luminance) picks metal
}

// DefaultThresholds returns the stock band edges.
func DefaultThresholds() Thresholds {
	return Thresholds{DarkBelow: 0.25, LightAbove: 0.75, MetalAbove: 0.5}
}

// Defaults substituted when a model has no material carrying shading inputs:
// a neutral midtone, zero metalness. These land in the neutral band by
// construction.
const (
	fallbackLuminance = 0.55
	fallbackMetalness = 0.0
)

// Lighting is one applied preset: background tone, renderer exposure, and
// the two light intensities.
type Lighting struct {
	Preset     Preset
	Background colorful.Color
	Exposure   float64
	Ambient    float64 // fill light intensity
	Key        float64 // directional light intensity
}

// presets are fixed per band, not interpolated.
var presets = map[Preset]Lighting{
	PresetNeutral: {
		Preset:     PresetNeutral,
		Background: colorful.Hsv(0, 0, 0.13),
		Exposure:   1.0,
		Ambient:    0.35,
		Key:        0.9,
	},
	PresetDark: {
		Preset:     PresetDark,
		Background: colorful.Hsv(225, 0.30, 0.07),
		Exposure:   0.9,
		Ambient:    0.25,
		Key:        0.8,
	},
	PresetLightCool: {
		Preset:     PresetLightCool,
		Background: colorful.Hsv(210, 0.08, 0.92),
		Exposure:   1.15,
		Ambient:    0.5,
		Key:        1.0,
	},
	PresetMetal: {
		Preset:     PresetMetal,
		Background: colorful.Hsv(220, 0.25, 0.16),
		Exposure:   1.05,
		Ambient:    0.2,
		Key:        1.3,
	},
}

// Analyze averages the shading inputs across every material that exposes
// them. Models with no qualifying materials get the neutral fallbacks.
func Analyze(mesh *models.Mesh) (meanLuminance, meanMetalness float64) {
	var lumSum, metalSum float64
	var n int
	for i := range mesh.MaterialCount() {
		lum, metal, ok := mesh.GetMaterial(i).Shading()
		if !ok {
			continue
		}
		lumSum += lum
		metalSum += metal
		n++
	}
	if n == 0 {
		return fallbackLuminance, fallbackMetalness
	}
	return lumSum / float64(n), metalSum / float64(n)
}

// Classify maps the material means to a preset. Low luminance picks the
// dark background, high luminance the light one, and metallic mid-tone
// models the strong key light.
func Classify(meanLuminance, meanMetalness float64, th Thresholds) Lighting {
	switch {
	case meanLuminance < th.DarkBelow:
		return presets[PresetDark]
	case meanLuminance > th.LightAbove:
		return presets[PresetLightCool]
	case meanMetalness > th.MetalAbove:
		return presets[PresetMetal]
	default:
		return presets[PresetNeutral]
	}
}

// LightingFor runs the heuristic end to end for a loaded mesh.
func LightingFor(mesh *models.Mesh, th Thresholds) Lighting {
	lum, metal := Analyze(mesh)
	return Classify(lum, metal, th)
}
