// Package frigate checks a parsed Frigate NVR configuration against the
// camera, zone, PTZ, recording and snapshot constraints, and normalizes the
// values it can fix deterministically.
package frigate

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/haasonsaas/yamldoctor/internal/diagnostics"
	"github.com/haasonsaas/yamldoctor/internal/format"
)

var (
	cameraNamePattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	invalidNameChars   = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	placeholderPattern = regexp.MustCompile(`^\$\{[A-Z][A-Z0-9_]*\}$`)
)

// DefaultZoneCoordinates is the full-frame rectangle written over invalid
// zone coordinates.
const DefaultZoneCoordinates = "0,0,1,0,1,1,0,1"

const (
	movementWeightCount = 6
	distanceCount       = 4
	minZonePoints       = 3
	maxPreCapture       = 30
	detectRole          = "detect"
	cameraKeyPrefix     = "camera_"
)

// enumField restricts a string field to a fixed set of values.
type enumField struct {
	key      string
	values   []string
	fallback string
}

func (e enumField) allows(s string) bool {
	return slices.Contains(e.values, s)
}

func (e enumField) describe() string {
	return strings.Join(e.values, ", ")
}

var (
	retainMode     = []string{"all", "motion", "active_objects"}
	zoomingField   = enumField{key: "zooming", values: []string{"disabled", "absolute", "relative"}, fallback: "disabled"}
	birdseyeMode   = enumField{key: "mode", values: []string{"objects", "motion", "continuous"}, fallback: "objects"}
	genaiProvider  = enumField{key: "provider", values: []string{"openai", "azure_openai", "gemini", "ollama"}, fallback: "openai"}
	cameraType     = enumField{key: "type", values: []string{"generic", "lpr"}, fallback: "generic"}
	timestampEnums = []enumField{
		{key: "position", values: []string{"tl", "tr", "bl", "br"}, fallback: "tl"},
		{key: "effect", values: []string{"solid", "shadow"}, fallback: "solid"},
	}
	recordEnums = []enumField{
		{key: "retain.mode", values: retainMode, fallback: "all"},
		{key: "alerts.retain.mode", values: retainMode, fallback: "all"},
		{key: "detections.retain.mode", values: retainMode, fallback: "all"},
	}
	snapshotEnums = []enumField{
		{key: "retain.mode", values: retainMode, fallback: "all"},
	}
)

// numberRule is one row of the range policy table. The validator reads the
// bounds and severities; the fixer reads the clamp-or-reset policy.
type numberRule struct {
	min, max       float64
	hasMin, hasMax bool

	severity    diagnostics.Severity
	maxSeverity diagnostics.Severity

	def        float64
	hasDefault bool
	resetBelow bool
	resetAbove bool
}

func between(lo, hi float64) numberRule {
	return numberRule{min: lo, max: hi, hasMin: true, hasMax: true}
}

func atLeast(lo float64) numberRule {
	return numberRule{min: lo, hasMin: true}
}

func (r numberRule) withDefault(v float64) numberRule {
	r.def, r.hasDefault = v, true
	return r
}

// resetAboveMax makes over-limit values fall back to the default rather than
// the bound.
func (r numberRule) resetAboveMax() numberRule {
	r.resetAbove = true
	return r
}

func (r numberRule) resetBelowMin() numberRule {
	r.resetBelow = true
	return r
}

func (r numberRule) warnAboveMax() numberRule {
	r.maxSeverity = diagnostics.SeverityWarning
	return r
}

func (r numberRule) warnOnly() numberRule {
	r.severity = diagnostics.SeverityWarning
	r.maxSeverity = diagnostics.SeverityWarning
	return r
}

func (r numberRule) minSev() diagnostics.Severity {
	if r.severity == "" {
		return diagnostics.SeverityError
	}
	return r.severity
}

func (r numberRule) maxSev() diagnostics.Severity {
	if r.maxSeverity == "" {
		return r.minSev()
	}
	return r.maxSeverity
}

func (r numberRule) bounds() string {
	switch {
	case r.hasMin && r.hasMax:
		return fmt.Sprintf("between %s and %s", format.Number(r.min), format.Number(r.max))
	case r.hasMin:
		return "at least " + format.Number(r.min)
	default:
		return "at most " + format.Number(r.max)
	}
}

// numberField binds a rule to a dotted key relative to a section.
type numberField struct {
	key  string
	rule numberRule
}

var (
	autotrackingNumbers = []numberField{
		{"zoom_factor", between(0.1, 0.75).withDefault(0.3).resetAboveMax()},
		{"timeout", atLeast(1).withDefault(10).resetBelowMin()},
	}
	preCapture    = between(0, maxPreCapture).warnAboveMax().withDefault(5)
	recordNumbers = []numberField{
		{"alerts.pre_capture", preCapture},
		{"detections.pre_capture", preCapture},
		{"events.pre_capture", preCapture},
		{"expire_interval", atLeast(1).withDefault(60)},
		{"retain.days", atLeast(0).withDefault(0)},
		{"alerts.retain.days", atLeast(0)},
		{"detections.retain.days", atLeast(0)},
	}
	filterNumbers = []numberField{
		{"min_area", atLeast(0).withDefault(0)},
		{"max_area", atLeast(0)},
		{"min_ratio", atLeast(0).withDefault(0)},
		{"max_ratio", atLeast(0)},
		{"threshold", between(0, 1).withDefault(0.7)},
		{"min_score", between(0, 1).withDefault(0.5)},
	}
	timestampNumbers = []numberField{
		{"color.red", between(0, 255)},
		{"color.green", between(0, 255)},
		{"color.blue", between(0, 255)},
		{"thickness", atLeast(1).withDefault(2)},
	}
	snapshotNumbers = []numberField{
		{"quality", between(0, 100).withDefault(70)},
		{"height", atLeast(1)},
		{"retain.default", atLeast(0).withDefault(10)},
	}
	snapshotObjectDays = atLeast(0)
	cameraNumbers      = []numberField{
		{"detect.fps", between(1, 30).withDefault(5)},
		{"detect.height", between(240, 1080).warnOnly()},
		{"live.quality", between(1, 31).withDefault(8)},
		{"mqtt.quality", between(0, 100).withDefault(70)},
	}
	zoneNumbers = []numberField{
		{"inertia", atLeast(1).withDefault(3)},
		{"loitering_time", atLeast(0).withDefault(0)},
		{"speed_threshold", atLeast(0.1)},
	}
)

// numberValue builds the scalar written back by the fixer, keeping whole
// numbers integral.
func numberValue(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// SanitizeCameraName replaces every character outside [A-Za-z0-9_-] with an
// underscore.
func SanitizeCameraName(name string) string {
	if name == "" {
		return "_"
	}
	return invalidNameChars.ReplaceAllString(name, "_")
}

// ValidCameraName reports whether name is usable as a camera key.
func ValidCameraName(name string) bool {
	return cameraNamePattern.MatchString(name)
}
