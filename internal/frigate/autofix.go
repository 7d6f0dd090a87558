package frigate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/haasonsaas/yamldoctor/internal/diagnostics"
	"github.com/haasonsaas/yamldoctor/internal/document"
	"github.com/haasonsaas/yamldoctor/internal/format"
)

// Result is the output of AutoFix.
type Result struct {
	Fixed *document.Node
	Log   []diagnostics.FixEntry
}

// AutoFix returns a corrected deep copy of tree and a log of every change, in
// the order the changes were made. The fixer re-inspects the tree itself
// rather than consuming issues; issues only gate whether it runs at all.
// Values written as ${NAME} placeholders are never touched.
func AutoFix(tree *document.Node, issues []diagnostics.Issue) Result {
	fixed := tree.Clone()
	if len(issues) == 0 || !fixed.IsMapping() {
		return Result{Fixed: fixed}
	}
	f := &fixer{root: fixed}
	f.walk()
	return Result{Fixed: fixed, Log: f.log}
}

type fixer struct {
	root *document.Node
	log  []diagnostics.FixEntry
}

func (f *fixer) record(entry diagnostics.FixEntry) {
	f.log = append(f.log, entry)
}

// set writes value under key in parent, logging the change against the
// parent's path.
func (f *fixer) set(parent *document.Node, base document.Path, key string, value *document.Node, reason diagnostics.Reason, detail string) {
	old := parent.Get(key)
	var edit document.Edit
	if parent.Has(key) {
		edit = document.SetValueEdit(parent, key, value)
	} else {
		edit = document.InsertEdit(parent, key, value)
	}
	parent.Set(key, value)
	f.record(diagnostics.FixEntry{
		Path:   base.Key(key).String(),
		Old:    format.Describe(old),
		New:    format.Describe(value),
		Reason: reason,
		Detail: detail,
		Edit:   edit,
	})
}

func (f *fixer) remove(parent *document.Node, base document.Path, key string, reason diagnostics.Reason, detail string) {
	old := parent.Get(key)
	if opaque(old) {
		return
	}
	edit := document.DeleteEdit(parent, key)
	if !parent.Delete(key) {
		return
	}
	f.record(diagnostics.FixEntry{
		Path:   base.Key(key).String(),
		Old:    format.Describe(old),
		New:    format.Removed,
		Reason: reason,
		Detail: detail,
		Edit:   edit,
	})
}

func (f *fixer) rename(parent *document.Node, base document.Path, oldKey, newKey string) {
	edit := document.RenameEdit(parent, oldKey, newKey)
	if !parent.Rename(oldKey, newKey) {
		return
	}
	f.record(diagnostics.FixEntry{
		Path:   base.Key(oldKey).String(),
		Old:    strconv.Quote(oldKey),
		New:    strconv.Quote(newKey),
		Reason: diagnostics.ReasonSanitized,
		Edit:   edit,
	})
}

func (f *fixer) walk() {
	for _, key := range f.root.Keys() {
		n := f.root.Get(key)
		if !f.root.Has(key) {
			continue
		}
		path := document.ParsePath(key)
		switch key {
		case "cameras":
			f.cameras()
		case "onvif":
			f.ptz(n, path)
		case "record":
			f.recordSection(n, path)
		case "snapshots":
			f.snapshots(n, path)
		case "objects":
			f.objects(n, path)
		case "review":
			f.review(n, path)
		case "timestamp_style":
			f.timestamp(n, path)
		case "birdseye":
			f.enumSection(n, path, birdseyeMode)
		case "genai":
			f.enumSection(n, path, genaiProvider)
		}
	}
}

// number applies the clamp-or-reset policy of rule to parent[key].
func (f *fixer) number(parent *document.Node, base document.Path, key string, rule numberRule) {
	n := parent.Get(key)
	if n.IsNull() || opaque(n) {
		return
	}
	x, ok := n.Float()
	if !ok {
		if rule.hasDefault {
			f.set(parent, base, key, document.NewScalar(numberValue(rule.def)), diagnostics.ReasonDefault, "not a number")
		}
		return
	}
	switch {
	case rule.hasMin && x < rule.min:
		if rule.resetBelow {
			f.set(parent, base, key, document.NewScalar(numberValue(rule.def)), diagnostics.ReasonDefault, "min "+format.Number(rule.min))
			return
		}
		f.set(parent, base, key, document.NewScalar(numberValue(rule.min)), diagnostics.ReasonMin, "")
	case rule.hasMax && x > rule.max:
		if rule.resetAbove {
			f.set(parent, base, key, document.NewScalar(numberValue(rule.def)), diagnostics.ReasonDefault, "max "+format.Number(rule.max))
			return
		}
		f.set(parent, base, key, document.NewScalar(numberValue(rule.max)), diagnostics.ReasonMax, "")
	}
}

func (f *fixer) numbers(section *document.Node, base document.Path, fields []numberField) {
	for _, field := range fields {
		parent, key, path := resolve(section, base, field.key)
		if parent == nil {
			continue
		}
		f.number(parent, path, key, field.rule)
	}
}

func (f *fixer) enum(section *document.Node, base document.Path, field enumField) {
	parent, key, path := resolve(section, base, field.key)
	if parent == nil {
		return
	}
	n := parent.Get(key)
	if n.IsNull() || opaque(n) {
		return
	}
	if s, ok := n.String(); ok && field.allows(s) {
		return
	}
	f.set(parent, path, key, document.NewScalar(field.fallback), diagnostics.ReasonDefault, "")
}

func (f *fixer) enums(section *document.Node, base document.Path, fields []enumField) {
	for _, field := range fields {
		f.enum(section, base, field)
	}
}

func (f *fixer) enumSection(n *document.Node, base document.Path, field enumField) {
	if n.IsMapping() {
		f.enum(n, base, field)
	}
}

// requiredZones splits comma strings, resets unusable values to an empty
// list and drops blank entries from lists.
func (f *fixer) requiredZones(parent *document.Node, base document.Path) {
	const key = "required_zones"
	n := parent.Get(key)
	if n.IsNull() || opaque(n) {
		return
	}
	switch {
	case n.IsSequence():
		kept := make([]string, 0, len(n.Items))
		changed := false
		for _, item := range n.Items {
			s, ok := item.String()
			if !ok || strings.TrimSpace(s) == "" {
				changed = true
				continue
			}
			kept = append(kept, s)
		}
		if changed {
			f.set(parent, base, key, document.StringSequence(kept...), diagnostics.ReasonSanitized, "blank entries")
		}
	case n.IsScalar():
		s, ok := n.String()
		switch {
		case !ok || strings.TrimSpace(s) == "":
			f.set(parent, base, key, document.NewSequence(), diagnostics.ReasonDefault, "")
		case strings.Contains(s, ","):
			f.set(parent, base, key, document.StringSequence(splitNames(s)...), diagnostics.ReasonConverted, "")
		}
	default:
		f.set(parent, base, key, document.NewSequence(), diagnostics.ReasonDefault, "")
	}
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (f *fixer) ptz(onvif *document.Node, base document.Path) {
	at := onvif.Get("autotracking")
	if !at.IsMapping() {
		return
	}
	atPath := base.Key("autotracking")
	f.numbers(at, atPath, autotrackingNumbers)
	f.enum(at, atPath, zoomingField)
	f.movementWeights(at, atPath)
	f.requiredZones(at, atPath)
}

func (f *fixer) movementWeights(at *document.Node, base document.Path) {
	const key = "movement_weights"
	n := at.Get(key)
	if n.IsNull() || opaque(n) {
		return
	}
	nums, ok := numberList(n)
	if !ok || (len(nums) != 0 && len(nums) != movementWeightCount) {
		f.set(at, base, key, document.NewSequence(), diagnostics.ReasonDefault,
			fmt.Sprintf("needs 0 or %d values", movementWeightCount))
		return
	}
	if hasNegative(nums) {
		f.set(at, base, key, numberSequence(clampNegatives(nums)), diagnostics.ReasonMin, "")
	}
}

func clampNegatives(nums []float64) []float64 {
	out := make([]float64, len(nums))
	for i, v := range nums {
		out[i] = max(v, 0)
	}
	return out
}

func (f *fixer) recordSection(n *document.Node, base document.Path) {
	if !n.IsMapping() {
		return
	}
	f.numbers(n, base, recordNumbers)
	f.enums(n, base, recordEnums)
}

func (f *fixer) snapshots(n *document.Node, base document.Path) {
	if !n.IsMapping() {
		return
	}
	f.numbers(n, base, snapshotNumbers)
	f.enums(n, base, snapshotEnums)
	if objs := n.Lookup(document.ParsePath("retain", "objects")); objs.IsMapping() {
		objsPath := base.Key("retain").Key("objects")
		for _, label := range objs.Keys() {
			f.number(objs, objsPath, label, snapshotObjectDays)
		}
	}
	f.requiredZones(n, base)
}

func (f *fixer) objects(n *document.Node, base document.Path) {
	filters := n.Get("filters")
	if !filters.IsMapping() {
		return
	}
	filtersPath := base.Key("filters")
	for _, p := range filters.Pairs {
		if p.Value.IsMapping() {
			f.numbers(p.Value, filtersPath.Key(p.Key), filterNumbers)
		}
	}
}

func (f *fixer) review(n *document.Node, base document.Path) {
	for _, kind := range []string{"alerts", "detections"} {
		if sub := n.Get(kind); sub.IsMapping() {
			f.requiredZones(sub, base.Key(kind))
		}
	}
}

func (f *fixer) timestamp(n *document.Node, base document.Path) {
	if !n.IsMapping() {
		return
	}
	f.enums(n, base, timestampEnums)
	f.numbers(n, base, timestampNumbers)
}

// cameras converts a camera list to a keyed mapping, sanitizes camera keys
// and then fixes every camera in declaration order.
func (f *fixer) cameras() {
	base := document.ParsePath("cameras")
	cams := f.root.Get("cameras")
	converted := make(map[string]bool)
	if cams.IsSequence() {
		cams = f.convertList(cams, converted)
	}
	if !cams.IsMapping() {
		return
	}

	for _, key := range cams.Keys() {
		cam := cams.Get(key)
		if !cam.IsMapping() {
			continue
		}
		renamed := converted[key]
		if !ValidCameraName(key) {
			newKey := uniqueKey(cams, SanitizeCameraName(key))
			f.rename(cams, base, key, newKey)
			key, renamed = newKey, true
		}
		path := base.Key(key)
		if name, ok := nameField(cam); ok && name != key && (renamed || !ValidCameraName(name)) {
			f.set(cam, path, "name", document.NewScalar(key), diagnostics.ReasonSanitized, "")
		}
		f.camera(cam, path)
	}
}

// convertList rekeys a camera list by name. Entries without a usable name get
// camera_<index>; clashes get a numeric suffix. Keys that differ from the
// entry's name field are recorded in converted.
func (f *fixer) convertList(list *document.Node, converted map[string]bool) *document.Node {
	m := document.NewMapping()
	views := cameraViews(list)
	byIndex := make(map[int]cameraView, len(views))
	for _, c := range views {
		byIndex[c.index] = c
	}
	for i, item := range list.Items {
		c, ok := byIndex[i]
		if !ok {
			c = cameraView{index: i}
		}
		key := uniqueKey(m, SanitizeCameraName(listCameraKey(c)))
		if name, hasName := nameField(item); hasName && name != key {
			converted[key] = true
		}
		m.Pairs = append(m.Pairs, &document.Pair{Key: key, Value: item, KeyLine: item.Line})
	}
	f.root.Set("cameras", m)
	f.record(diagnostics.FixEntry{
		Path:   "cameras",
		Old:    fmt.Sprintf("list of %d", len(list.Items)),
		New:    "mapping by name",
		Reason: diagnostics.ReasonConverted,
	})
	return m
}

func uniqueKey(m *document.Node, key string) string {
	if !m.Has(key) {
		return key
	}
	for i := 2; ; i++ {
		candidate := key + "_" + strconv.Itoa(i)
		if !m.Has(candidate) {
			return candidate
		}
	}
}

func (f *fixer) camera(cam *document.Node, base document.Path) {
	f.adoptOnvif(cam, base)

	f.ffmpeg(cam, base)
	f.numbers(cam, base, cameraNumbers)
	f.enum(cam, base, cameraType)
	f.enumSection(cam.Get("genai"), base.Key("genai"), genaiProvider)
	if onvif := cam.Get("onvif"); onvif.IsMapping() {
		f.ptz(onvif, base.Key("onvif"))
	}
	if zones := cam.Get("zones"); zones.IsMapping() {
		f.zones(zones, base.Key("zones"))
	}
	f.recordSection(cam.Get("record"), base.Key("record"))
	f.snapshots(cam.Get("snapshots"), base.Key("snapshots"))
	f.objects(cam.Get("objects"), base.Key("objects"))
	f.review(cam.Get("review"), base.Key("review"))
	f.timestamp(cam.Get("timestamp_style"), base.Key("timestamp_style"))
	f.enumSection(cam.Get("birdseye"), base.Key("birdseye"), birdseyeMode)
}

// adoptOnvif moves a top-level onvif section under the first camera that has
// none of its own.
func (f *fixer) adoptOnvif(cam *document.Node, base document.Path) {
	onvif := f.root.Get("onvif")
	if !onvif.IsMapping() || !cam.Get("onvif").IsNull() {
		return
	}
	cam.Set("onvif", onvif)
	f.root.Delete("onvif")
	f.record(diagnostics.FixEntry{
		Path:   "onvif",
		Old:    "top-level",
		New:    base.Key("onvif").String(),
		Reason: diagnostics.ReasonConverted,
		Detail: "moved",
	})
}

// ffmpeg removes roles already claimed by an earlier input and gives the first
// input the detect role when no input has it.
func (f *fixer) ffmpeg(cam *document.Node, base document.Path) {
	inputsPath := base.Key("ffmpeg").Key("inputs")
	inputs := cam.Get("ffmpeg").Get("inputs")
	if !inputs.IsSequence() {
		return
	}

	seen := make(map[string]bool)
	first := -1
	for i, in := range inputs.Items {
		if !in.IsMapping() {
			continue
		}
		if first < 0 {
			first = i
		}
		roles := roleList(in.Get("roles"))
		kept := make([]string, 0, len(roles))
		for _, role := range roles {
			if seen[role] {
				continue
			}
			seen[role] = true
			kept = append(kept, role)
		}
		if len(kept) != len(roles) {
			f.set(in, inputsPath.Index(i), "roles", document.StringSequence(kept...), diagnostics.ReasonSanitized, "duplicate role")
		}
	}
	if seen[detectRole] || first < 0 {
		return
	}
	in := inputs.Items[first]
	roles := append(roleList(in.Get("roles")), detectRole)
	f.set(in, inputsPath.Index(first), "roles", document.StringSequence(roles...), diagnostics.ReasonDefault, "detect role required")
}

func (f *fixer) zones(zones *document.Node, base document.Path) {
	for _, key := range zones.Keys() {
		zp := base.Key(key)
		z := zones.Get(key)
		if z.IsNull() {
			fresh := document.NewMapping()
			fresh.Set("coordinates", document.NewScalar(DefaultZoneCoordinates))
			f.set(zones, base, key, fresh, diagnostics.ReasonDefault, "")
			continue
		}
		if !z.IsMapping() {
			continue
		}

		coords := z.Get("coordinates")
		if coords.IsNull() || (!opaque(coords) && !ValidateCoordinateString(coords)) {
			f.set(z, zp, "coordinates", document.NewScalar(DefaultZoneCoordinates), diagnostics.ReasonDefault, "")
		}

		f.numbers(z, zp, zoneNumbers[:2])
		if lt, ok := z.Get("loitering_time").Float(); ok && lt > 0 {
			f.remove(z, zp, "speed_threshold", diagnostics.ReasonConflict, "loitering_time > 0")
			f.remove(z, zp, "distances", diagnostics.ReasonConflict, "loitering_time > 0")
		}
		f.numbers(z, zp, zoneNumbers[2:])
		f.distances(z, zp)
	}
}

func (f *fixer) distances(z *document.Node, base document.Path) {
	const key = "distances"
	n := z.Get(key)
	if n.IsNull() || opaque(n) {
		return
	}
	nums, ok := numberList(n)
	if !ok || len(nums) != distanceCount {
		f.set(z, base, key, numberSequence(make([]float64, distanceCount)), diagnostics.ReasonDefault,
			fmt.Sprintf("needs %d values", distanceCount))
		return
	}
	if hasNegative(nums) {
		f.set(z, base, key, numberSequence(clampNegatives(nums)), diagnostics.ReasonMin, "")
	}
}
