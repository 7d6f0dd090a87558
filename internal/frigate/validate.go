package frigate

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/yamldoctor/internal/diagnostics"
	"github.com/haasonsaas/yamldoctor/internal/document"
	"github.com/haasonsaas/yamldoctor/internal/format"
)

// Validate checks a parsed configuration against the domain rules and returns
// every violation in walk order. The tree is not modified. Documents whose
// root is not a mapping carry no domain structure and yield no issues.
func Validate(tree *document.Node) []diagnostics.Issue {
	if !tree.IsMapping() {
		return nil
	}
	work := tree.Clone()
	maskPlaceholders(work)

	v := &validator{}
	v.root(work)
	return v.issues
}

type validator struct {
	issues []diagnostics.Issue
}

func (v *validator) add(sev diagnostics.Severity, cat diagnostics.Category, path document.Path, at *document.Node, msg string, args ...any) {
	issue := diagnostics.Issue{
		Message:  fmt.Sprintf(msg, args...),
		Path:     path,
		Category: cat,
		Severity: sev,
	}
	if at != nil {
		issue.Line, issue.Column = at.Line, at.Column
	}
	v.issues = append(v.issues, issue)
}

func (v *validator) errorf(cat diagnostics.Category, path document.Path, at *document.Node, msg string, args ...any) {
	v.add(diagnostics.SeverityError, cat, path, at, msg, args...)
}

func (v *validator) warnf(cat diagnostics.Category, path document.Path, at *document.Node, msg string, args ...any) {
	v.add(diagnostics.SeverityWarning, cat, path, at, msg, args...)
}

// mapping reports whether n is a mapping to descend into. A present value of
// another kind is an error.
func (v *validator) mapping(n *document.Node, path document.Path, cat diagnostics.Category) bool {
	if n.IsNull() {
		return false
	}
	if !n.IsMapping() {
		v.errorf(cat, path, n, "%s must be a mapping", fieldName(path))
		return false
	}
	return true
}

func fieldName(path document.Path) string {
	last := path.Last()
	if last.IsIndex {
		return path.String()
	}
	return last.Key
}

func (v *validator) root(root *document.Node) {
	cameras := root.Get("cameras")
	for _, p := range root.Pairs {
		path := document.ParsePath(p.Key)
		switch p.Key {
		case "cameras":
			v.cameras(p.Value)
		case "onvif":
			v.ptz(p.Value, path)
			if target, ok := firstCameraWithoutOnvif(cameras); ok && p.Value.IsMapping() {
				v.warnf(diagnostics.CategoryPTZ, path, p.Value,
					"top-level onvif applies to no camera; it belongs under %s", target.path.Key("onvif"))
			}
		case "record":
			v.record(p.Value, path)
		case "snapshots":
			v.snapshots(p.Value, path)
		case "objects":
			v.objects(p.Value, path, diagnostics.CategoryGlobal)
		case "review":
			v.review(p.Value, path, diagnostics.CategoryGlobal)
		case "timestamp_style":
			v.timestamp(p.Value, path, diagnostics.CategoryGlobal)
		case "birdseye":
			v.enumSection(p.Value, path, birdseyeMode, diagnostics.CategoryGlobal)
		case "genai":
			v.enumSection(p.Value, path, genaiProvider, diagnostics.CategoryGlobal)
		}
	}
}

func firstCameraWithoutOnvif(cameras *document.Node) (cameraView, bool) {
	for _, c := range cameraViews(cameras) {
		if c.node.Get("onvif").IsNull() {
			return c, true
		}
	}
	return cameraView{}, false
}

func (v *validator) number(n *document.Node, path document.Path, rule numberRule, cat diagnostics.Category) {
	if n.IsNull() || opaque(n) {
		return
	}
	name := fieldName(path)
	x, ok := n.Float()
	if !ok {
		v.add(rule.minSev(), cat, path, n, "%s must be a number, got %s", name, format.Describe(n))
		return
	}
	switch {
	case rule.hasMin && x < rule.min:
		v.add(rule.minSev(), cat, path, n, "%s must be %s, got %s", name, rule.bounds(), format.Number(x))
	case rule.hasMax && x > rule.max:
		v.add(rule.maxSev(), cat, path, n, "%s must be %s, got %s", name, rule.bounds(), format.Number(x))
	}
}

func (v *validator) numbers(section *document.Node, base document.Path, fields []numberField, cat diagnostics.Category) {
	for _, f := range fields {
		parent, key, path := resolve(section, base, f.key)
		if parent == nil {
			continue
		}
		v.number(parent.Get(key), path.Key(key), f.rule, cat)
	}
}

func (v *validator) enum(n *document.Node, path document.Path, field enumField, cat diagnostics.Category) {
	if n.IsNull() || opaque(n) {
		return
	}
	if s, ok := n.String(); ok && field.allows(s) {
		return
	}
	v.errorf(cat, path, n, "%s must be one of %s, got %s", fieldName(path), field.describe(), format.Describe(n))
}

func (v *validator) enums(section *document.Node, base document.Path, fields []enumField, cat diagnostics.Category) {
	for _, f := range fields {
		parent, key, path := resolve(section, base, f.key)
		if parent == nil {
			continue
		}
		v.enum(parent.Get(key), path.Key(key), f, cat)
	}
}

func (v *validator) enumSection(n *document.Node, path document.Path, field enumField, cat diagnostics.Category) {
	if !v.mapping(n, path, cat) {
		return
	}
	v.enum(n.Get(field.key), path.Key(field.key), field, cat)
}

// requiredZones accepts a list of non-blank names or a single name.
func (v *validator) requiredZones(n *document.Node, path document.Path, cat diagnostics.Category) {
	if n.IsNull() || opaque(n) {
		return
	}
	switch {
	case n.IsSequence():
		for _, item := range n.Items {
			s, ok := item.String()
			if !ok || strings.TrimSpace(s) == "" {
				v.errorf(cat, path, item, "required_zones entries must be non-empty zone names")
				return
			}
		}
	case n.IsScalar():
		s, ok := n.String()
		switch {
		case !ok:
			v.errorf(cat, path, n, "required_zones must be a list of zone names, got %s", format.Describe(n))
		case strings.TrimSpace(s) == "":
			v.errorf(cat, path, n, "required_zones must not be blank")
		case strings.Contains(s, ","):
			v.errorf(cat, path, n, "required_zones must be a list, not a comma-separated string")
		}
	default:
		v.errorf(cat, path, n, "required_zones must be a list of zone names")
	}
}

// ptz validates an onvif section, top-level or per camera.
func (v *validator) ptz(onvif *document.Node, base document.Path) {
	const cat = diagnostics.CategoryPTZ
	if !v.mapping(onvif, base, cat) {
		return
	}
	atPath := base.Key("autotracking")
	at := onvif.Get("autotracking")
	if !v.mapping(at, atPath, cat) {
		return
	}
	v.numbers(at, atPath, autotrackingNumbers, cat)
	v.enum(at.Get(zoomingField.key), atPath.Key(zoomingField.key), zoomingField, cat)
	v.movementWeights(at.Get("movement_weights"), atPath.Key("movement_weights"))
	v.requiredZones(at.Get("required_zones"), atPath.Key("required_zones"), cat)
}

func (v *validator) movementWeights(n *document.Node, path document.Path) {
	const cat = diagnostics.CategoryPTZ
	if n.IsNull() || opaque(n) {
		return
	}
	nums, ok := numberList(n)
	if !ok {
		v.errorf(cat, path, n, "movement_weights must be a list of numbers or a comma-separated string")
		return
	}
	if len(nums) != 0 && len(nums) != movementWeightCount {
		v.errorf(cat, path, n, "movement_weights must have 0 or %d values, got %d", movementWeightCount, len(nums))
		return
	}
	for _, f := range nums {
		if f < 0 {
			v.errorf(cat, path, n, "movement_weights values must not be negative")
			return
		}
	}
}

func (v *validator) record(n *document.Node, base document.Path) {
	const cat = diagnostics.CategoryRecord
	if !v.mapping(n, base, cat) {
		return
	}
	v.numbers(n, base, recordNumbers, cat)
	v.enums(n, base, recordEnums, cat)
}

func (v *validator) snapshots(n *document.Node, base document.Path) {
	const cat = diagnostics.CategorySnapshot
	if !v.mapping(n, base, cat) {
		return
	}
	v.numbers(n, base, snapshotNumbers, cat)
	v.enums(n, base, snapshotEnums, cat)
	objsPath := base.Key("retain").Key("objects")
	if objs := n.Lookup(document.ParsePath("retain", "objects")); v.mapping(objs, objsPath, cat) {
		for _, p := range objs.Pairs {
			v.number(p.Value, objsPath.Key(p.Key), snapshotObjectDays, cat)
		}
	}
	v.requiredZones(n.Get("required_zones"), base.Key("required_zones"), cat)
}

func (v *validator) objects(n *document.Node, base document.Path, cat diagnostics.Category) {
	if !v.mapping(n, base, cat) {
		return
	}
	filtersPath := base.Key("filters")
	filters := n.Get("filters")
	if !v.mapping(filters, filtersPath, cat) {
		return
	}
	for _, p := range filters.Pairs {
		if v.mapping(p.Value, filtersPath.Key(p.Key), cat) {
			v.numbers(p.Value, filtersPath.Key(p.Key), filterNumbers, cat)
		}
	}
}

func (v *validator) review(n *document.Node, base document.Path, cat diagnostics.Category) {
	if !v.mapping(n, base, cat) {
		return
	}
	for _, kind := range []string{"alerts", "detections"} {
		sub := n.Get(kind)
		if v.mapping(sub, base.Key(kind), cat) {
			v.requiredZones(sub.Get("required_zones"), base.Key(kind).Key("required_zones"), cat)
		}
	}
}

func (v *validator) timestamp(n *document.Node, base document.Path, cat diagnostics.Category) {
	if !v.mapping(n, base, cat) {
		return
	}
	v.enums(n, base, timestampEnums, cat)
	v.numbers(n, base, timestampNumbers, cat)
}

func (v *validator) cameras(cameras *document.Node) {
	path := document.ParsePath("cameras")
	if !cameras.IsMapping() && !cameras.IsSequence() {
		v.errorf(diagnostics.CategoryGlobal, path, cameras, "cameras must be a list or a mapping of cameras")
		return
	}
	if cameras.IsSequence() {
		for i, item := range cameras.Items {
			if !item.IsMapping() {
				v.errorf(diagnostics.CategoryCamera, path.Index(i), item, "camera entry must be a mapping")
			}
		}
	} else {
		for _, p := range cameras.Pairs {
			if !p.Value.IsMapping() {
				v.errorf(diagnostics.CategoryCamera, path.Key(p.Key), p.Value, "camera entry must be a mapping")
			}
		}
	}
	for _, c := range cameraViews(cameras) {
		v.camera(c)
	}
}

func (v *validator) camera(c cameraView) {
	const cat = diagnostics.CategoryCamera
	cam := c.node

	if c.fromList() && c.name == "" {
		v.errorf(cat, c.path, cam, "camera has no name")
	}
	if !c.fromList() && !ValidCameraName(c.key) {
		v.errorf(cat, c.path, cam, "camera name %q may only contain letters, digits, _ and -", c.key)
	}
	if name, ok := nameField(cam); ok && name != c.key && !ValidCameraName(name) {
		v.errorf(cat, c.path.Key("name"), cam.Get("name"), "camera name %q may only contain letters, digits, _ and -", name)
	}

	v.ffmpeg(cam, c.path)
	v.numbers(cam, c.path, cameraNumbers, cat)
	v.enum(cam.Get(cameraType.key), c.path.Key(cameraType.key), cameraType, cat)
	if genai := cam.Get("genai"); !genai.IsNull() {
		v.enumSection(genai, c.path.Key("genai"), genaiProvider, cat)
	}
	if onvif := cam.Get("onvif"); !onvif.IsNull() {
		v.ptz(onvif, c.path.Key("onvif"))
	}
	v.zones(cam.Get("zones"), c.path.Key("zones"))
	v.record(cam.Get("record"), c.path.Key("record"))
	v.snapshots(cam.Get("snapshots"), c.path.Key("snapshots"))
	v.objects(cam.Get("objects"), c.path.Key("objects"), cat)
	v.review(cam.Get("review"), c.path.Key("review"), cat)
	v.timestamp(cam.Get("timestamp_style"), c.path.Key("timestamp_style"), cat)
	if birdseye := cam.Get("birdseye"); !birdseye.IsNull() {
		v.enumSection(birdseye, c.path.Key("birdseye"), birdseyeMode, cat)
	}
}

func (v *validator) ffmpeg(cam *document.Node, base document.Path) {
	const cat = diagnostics.CategoryCamera
	ffPath := base.Key("ffmpeg")
	inputsPath := ffPath.Key("inputs")
	ff := cam.Get("ffmpeg")
	if !ff.IsNull() && !ff.IsMapping() {
		v.errorf(cat, ffPath, ff, "ffmpeg must be a mapping")
		return
	}
	inputs := ff.Get("inputs")
	if !inputs.IsSequence() {
		if !inputs.IsNull() {
			v.errorf(cat, inputsPath, inputs, "ffmpeg.inputs must be a list")
			return
		}
		v.errorf(cat, inputsPath, cam, "at least one input must have the detect role")
		return
	}

	seen := make(map[string]int)
	hasDetect := false
	for i, in := range inputs.Items {
		ip := inputsPath.Index(i)
		if !in.IsMapping() {
			v.errorf(cat, ip, in, "input must be a mapping with a path")
			continue
		}
		if p := in.Get("path"); !opaque(p) && strings.TrimSpace(p.Text()) == "" {
			v.errorf(cat, ip.Key("path"), in, "input path is required")
		}
		for _, role := range roleList(in.Get("roles")) {
			if role == detectRole {
				hasDetect = true
			}
			if prev, dup := seen[role]; dup {
				v.errorf(cat, ip.Key("roles"), in.Get("roles"), "role %q is already assigned to inputs[%d]", role, prev)
				continue
			}
			seen[role] = i
		}
	}
	if !hasDetect {
		v.errorf(cat, inputsPath, inputs, "at least one input must have the detect role")
	}
}

func (v *validator) zones(zones *document.Node, base document.Path) {
	const cat = diagnostics.CategoryZone
	if !v.mapping(zones, base, cat) {
		return
	}
	for _, p := range zones.Pairs {
		zp := base.Key(p.Key)
		z := p.Value
		if !v.mapping(z, zp, cat) {
			if z.IsNull() {
				v.errorf(cat, zp.Key("coordinates"), z, "coordinates are required")
			}
			continue
		}

		coords := z.Get("coordinates")
		switch {
		case coords.IsNull():
			v.errorf(cat, zp.Key("coordinates"), z, "coordinates are required")
		case !opaque(coords) && !ValidateCoordinateString(coords):
			v.errorf(cat, zp.Key("coordinates"), coords,
				"coordinates must list at least %d x,y points with values between 0 and 1", minZonePoints)
		}

		distances := z.Get("distances")
		if !distances.IsNull() && !opaque(distances) {
			nums, ok := numberList(distances)
			switch {
			case !ok || len(nums) != distanceCount:
				v.errorf(cat, zp.Key("distances"), distances, "distances must have exactly %d numbers", distanceCount)
			case hasNegative(nums):
				v.errorf(cat, zp.Key("distances"), distances, "distances must not be negative")
			}
		}

		v.numbers(z, zp, zoneNumbers, cat)

		loiter := z.Get("loitering_time")
		if lt, ok := loiter.Float(); ok && !opaque(loiter) && lt > 0 &&
			(concrete(z.Get("speed_threshold")) || concrete(distances)) {
			v.warnf(cat, zp.Key("loitering_time"), loiter,
				"loitering_time conflicts with speed_threshold and distances; speed estimation is ignored for loitering zones")
		}
	}
}

// concrete reports whether n holds a value other than null or a placeholder.
func concrete(n *document.Node) bool {
	return !n.IsNull() && !opaque(n)
}

func hasNegative(nums []float64) bool {
	for _, f := range nums {
		if f < 0 {
			return true
		}
	}
	return false
}
