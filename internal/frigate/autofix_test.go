package frigate

import (
	"slices"
	"strings"
	"testing"

	"github.com/haasonsaas/yamldoctor/internal/diagnostics"
	"github.com/haasonsaas/yamldoctor/internal/document"
)

func autoFix(t *testing.T, text string) (*document.Node, Result) {
	t.Helper()
	tree := mustParse(t, text)
	issues := Validate(tree)
	if len(issues) == 0 {
		t.Fatal("Validate() found nothing to fix")
	}
	return tree, AutoFix(tree, issues)
}

func lookup(n *document.Node, parts ...any) *document.Node {
	return n.Lookup(document.ParsePath(parts...))
}

func logLines(log []diagnostics.FixEntry) []string {
	out := make([]string, 0, len(log))
	for _, e := range log {
		out = append(out, e.String())
	}
	return out
}

// applyLog replays the fix log onto the source text and checks the result
// reads back as the fixed tree.
func applyLog(t *testing.T, text string, res Result) string {
	t.Helper()
	edits := make([]document.Edit, 0, len(res.Log))
	for _, e := range res.Log {
		edits = append(edits, e.Edit)
	}
	out, err := document.ApplyEdits(text, edits)
	if err != nil {
		t.Fatalf("ApplyEdits() error = %v", err)
	}
	if !document.Equal(mustParse(t, out), res.Fixed) {
		t.Fatalf("edited text does not match the fixed tree:\n%s", out)
	}
	return out
}

func TestAutoFixZoomFactorResetsToDefault(t *testing.T) {
	text := `onvif:
  autotracking:
    zoom_factor: 0.8 # too far
`
	_, res := autoFix(t, text)

	if got := lookup(res.Fixed, "onvif", "autotracking", "zoom_factor").Value; got != 0.3 {
		t.Errorf("zoom_factor = %v, want 0.3", got)
	}
	want := []string{"onvif.autotracking.zoom_factor: 0.8 → 0.3 (default, max 0.75)"}
	if got := logLines(res.Log); !slices.Equal(got, want) {
		t.Errorf("log = %q, want %q", got, want)
	}

	out := applyLog(t, text, res)
	if !strings.Contains(out, "zoom_factor: 0.3 # too far") {
		t.Errorf("edited text lost the comment:\n%s", out)
	}
}

func TestAutoFixClampsToBounds(t *testing.T) {
	_, res := autoFix(t, `onvif:
  autotracking:
    zoom_factor: 0.05
    timeout: 0
`)
	if got := lookup(res.Fixed, "onvif", "autotracking", "zoom_factor").Value; got != 0.1 {
		t.Errorf("zoom_factor = %v, want 0.1", got)
	}
	if got := lookup(res.Fixed, "onvif", "autotracking", "timeout").Value; got != int64(10) {
		t.Errorf("timeout = %v, want 10", got)
	}
	want := []string{
		"onvif.autotracking.zoom_factor: 0.05 → 0.1 (min)",
		"onvif.autotracking.timeout: 0 → 10 (default, min 1)",
	}
	if got := logLines(res.Log); !slices.Equal(got, want) {
		t.Errorf("log = %q, want %q", got, want)
	}
}

func TestAutoFixMovementWeights(t *testing.T) {
	_, res := autoFix(t, `onvif:
  autotracking:
    movement_weights: "1.0,2.0,3.0"
`)
	weights := lookup(res.Fixed, "onvif", "autotracking", "movement_weights")
	if !weights.IsSequence() || weights.Len() != 0 {
		t.Errorf("movement_weights = %v, want []", weights.Interface())
	}
	if len(res.Log) != 1 || res.Log[0].Reason != diagnostics.ReasonDefault {
		t.Errorf("log = %q", logLines(res.Log))
	}

	_, res = autoFix(t, `onvif:
  autotracking:
    movement_weights: [1, -2, 3, 4, 5, -6]
`)
	got := lookup(res.Fixed, "onvif", "autotracking", "movement_weights").Interface()
	want := []any{int64(1), int64(0), int64(3), int64(4), int64(5), int64(0)}
	if !slices.Equal(got.([]any), want) {
		t.Errorf("movement_weights = %v, want %v", got, want)
	}
}

func TestAutoFixSanitizesCameraName(t *testing.T) {
	text := `cameras:
  front door!:
    name: front door!
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
`
	_, res := autoFix(t, text)

	cams := res.Fixed.Get("cameras")
	if got := cams.Keys(); !slices.Equal(got, []string{"front_door_"}) {
		t.Fatalf("camera keys = %v", got)
	}
	if got := lookup(cams, "front_door_", "name").Text(); got != "front_door_" {
		t.Errorf("name = %q, want front_door_", got)
	}
	want := []string{
		`cameras.front door!: "front door!" → "front_door_" (sanitized)`,
		`cameras.front_door_.name: "front door!" → "front_door_" (sanitized)`,
	}
	if got := logLines(res.Log); !slices.Equal(got, want) {
		t.Errorf("log = %q, want %q", got, want)
	}
	applyLog(t, text, res)
}

func TestAutoFixInvalidNameTakesValidKey(t *testing.T) {
	text := `cameras:
  front:
    name: Front Door
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
`
	_, res := autoFix(t, text)

	cams := res.Fixed.Get("cameras")
	if got := cams.Keys(); !slices.Equal(got, []string{"front"}) {
		t.Fatalf("camera keys = %v, want the valid key kept", got)
	}
	if got := lookup(cams, "front", "name").Text(); got != "front" {
		t.Errorf("name = %q, want front", got)
	}
	want := []string{`cameras.front.name: "Front Door" → "front" (sanitized)`}
	if got := logLines(res.Log); !slices.Equal(got, want) {
		t.Errorf("log = %q, want %q", got, want)
	}
	applyLog(t, text, res)
}

func TestAutoFixLoiteringConflict(t *testing.T) {
	text := `cameras:
  front:
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
    zones:
      z1:
        coordinates: 0,0,1,0,1,1
        loitering_time: 30
        speed_threshold: 0.5
        distances: [1, 2, 3, 4]
`
	_, res := autoFix(t, text)

	z1 := lookup(res.Fixed, "cameras", "front", "zones", "z1")
	if z1.Has("speed_threshold") || z1.Has("distances") {
		t.Errorf("zone keys = %v, want speed estimation removed", z1.Keys())
	}
	for _, e := range res.Log {
		if e.Reason != diagnostics.ReasonConflict || e.New != "(removed)" {
			t.Errorf("entry = %q", e.String())
		}
	}
	out := applyLog(t, text, res)
	if strings.Contains(out, "speed_threshold") {
		t.Errorf("edited text still has speed_threshold:\n%s", out)
	}
}

func TestAutoFixLoiteringKeepsPlaceholders(t *testing.T) {
	text := `cameras:
  front:
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
    zones:
      z1:
        coordinates: 0,0,1,0,1,1
        loitering_time: 30
        speed_threshold: "${ZONE_SPEED}"
        distances: [1, 2, 3, 4]
`
	_, res := autoFix(t, text)

	z1 := lookup(res.Fixed, "cameras", "front", "zones", "z1")
	if z1.Has("distances") {
		t.Error("distances should be removed")
	}
	if got := z1.Get("speed_threshold").Text(); got != "${ZONE_SPEED}" {
		t.Errorf("speed_threshold = %q, want placeholder kept", got)
	}
	if len(res.Log) != 1 || res.Log[0].Path != "cameras.front.zones.z1.distances" {
		t.Errorf("log = %v, want only the distances removal", logLines(res.Log))
	}
	applyLog(t, text, res)
}

func TestAutoFixZones(t *testing.T) {
	_, res := autoFix(t, `cameras:
  front:
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
    zones:
      bad:
        coordinates: 0,0,2,2
        inertia: 0
        distances: "1,2"
      empty:
`)
	zones := lookup(res.Fixed, "cameras", "front", "zones")
	if got := lookup(zones, "bad", "coordinates").Text(); got != DefaultZoneCoordinates {
		t.Errorf("coordinates = %q", got)
	}
	if got := lookup(zones, "bad", "inertia").Value; got != int64(1) {
		t.Errorf("inertia = %v, want 1", got)
	}
	if got := lookup(zones, "bad", "distances").Len(); got != 4 {
		t.Errorf("distances has %d values, want 4", got)
	}
	if got := lookup(zones, "empty", "coordinates").Text(); got != DefaultZoneCoordinates {
		t.Errorf("empty zone coordinates = %q", got)
	}
}

func TestAutoFixRoles(t *testing.T) {
	t.Run("duplicate roles keep the first claim", func(t *testing.T) {
		text := `cameras:
  front:
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
        - path: rtsp://b
          roles: [detect, record]
`
		_, res := autoFix(t, text)
		got := lookup(res.Fixed, "cameras", "front", "ffmpeg", "inputs", 1, "roles").Interface()
		if !slices.Equal(got.([]any), []any{"record"}) {
			t.Errorf("roles = %v, want [record]", got)
		}
		applyLog(t, text, res)
	})

	t.Run("missing detect goes to the first input", func(t *testing.T) {
		text := `cameras:
  front:
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [record]
        - path: rtsp://b
`
		_, res := autoFix(t, text)
		got := lookup(res.Fixed, "cameras", "front", "ffmpeg", "inputs", 0, "roles").Interface()
		if !slices.Equal(got.([]any), []any{"record", "detect"}) {
			t.Errorf("roles = %v, want [record detect]", got)
		}
		applyLog(t, text, res)
	})
}

func TestAutoFixConvertsCameraList(t *testing.T) {
	_, res := autoFix(t, `cameras:
  - name: front
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
  - name: front
    ffmpeg:
      inputs:
        - path: rtsp://b
          roles: [detect]
  - ffmpeg:
      inputs:
        - path: rtsp://c
          roles: [detect]
`)
	cams := res.Fixed.Get("cameras")
	if got := cams.Keys(); !slices.Equal(got, []string{"front", "front_2", "camera_2"}) {
		t.Fatalf("camera keys = %v", got)
	}
	if got := lookup(cams, "front_2", "name").Text(); got != "front_2" {
		t.Errorf("second camera name = %q, want front_2", got)
	}
	if res.Log[0].Path != "cameras" || res.Log[0].Reason != diagnostics.ReasonConverted {
		t.Errorf("first entry = %q", res.Log[0].String())
	}
	if res.Log[0].Edit.Op != document.EditUnsupported {
		t.Errorf("conversion edit = %v, want unsupported", res.Log[0].Edit.Op)
	}
}

func TestAutoFixMovesTopLevelOnvif(t *testing.T) {
	_, res := autoFix(t, `onvif:
  host: 10.0.0.5
  autotracking:
    zoom_factor: 0.9
cameras:
  front:
    onvif:
      host: 10.0.0.4
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
  back:
    ffmpeg:
      inputs:
        - path: rtsp://b
          roles: [detect]
  side:
    ffmpeg:
      inputs:
        - path: rtsp://c
          roles: [detect]
`)
	if res.Fixed.Has("onvif") {
		t.Error("top-level onvif was not removed")
	}
	if got := lookup(res.Fixed, "cameras", "back", "onvif", "host").Text(); got != "10.0.0.5" {
		t.Errorf("back onvif host = %q", got)
	}
	if got := lookup(res.Fixed, "cameras", "back", "onvif", "autotracking", "zoom_factor").Value; got != 0.3 {
		t.Errorf("moved zoom_factor = %v, want 0.3", got)
	}
	if lookup(res.Fixed, "cameras", "side", "onvif") != nil {
		t.Error("onvif was given to more than one camera")
	}
	if got := lookup(res.Fixed, "cameras", "front", "onvif", "host").Text(); got != "10.0.0.4" {
		t.Errorf("front onvif host = %q", got)
	}
}

func TestAutoFixConverges(t *testing.T) {
	tests := []string{
		`onvif:
  autotracking:
    zoom_factor: 2
    timeout: -1
    zooming: sideways
    movement_weights: "1,2"
    required_zones: "a, b"
cameras:
  - name: front door!
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [record, record]
    detect:
      fps: 0
    zones:
      z1:
        coordinates: nonsense
        loitering_time: -4
        distances: [1, -2, 3, 4]
    record:
      alerts:
        pre_capture: 60
      retain:
        mode: sometimes
    snapshots:
      quality: 101
      required_zones: ["", z1]
    objects:
      filters:
        person:
          threshold: 7
          min_area: -1
    timestamp_style:
      position: middle
      thickness: 0
birdseye:
  mode: sideways
genai:
  provider: nobody
`,
		`cameras:
  a:
    ffmpeg:
      inputs:
        - path: rtsp://a
    type: thermal
    genai:
      provider: nobody
    review:
      alerts:
        required_zones: 3
`,
	}

	for i, text := range tests {
		tree := mustParse(t, text)
		before := Validate(tree)
		res := AutoFix(tree, before)
		if len(res.Log) == 0 {
			t.Fatalf("case %d: AutoFix() made no changes", i)
		}

		after := Validate(res.Fixed)
		if out := diagnostics.NewOutcome(res.Fixed, after); !out.OK {
			t.Errorf("case %d: issues remain after AutoFix: %v", i, out.Errors())
		}

		seen := make(map[diagnostics.Category]bool)
		for _, issue := range before {
			seen[issue.Category] = true
		}
		for _, issue := range after {
			if !seen[issue.Category] {
				t.Errorf("case %d: AutoFix introduced %v", i, issue)
			}
		}
	}
}

func TestAutoFixLeavesInputAlone(t *testing.T) {
	text := `cameras:
  front door!:
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [record]
`
	tree := mustParse(t, text)
	original := mustParse(t, text)
	res := AutoFix(tree, Validate(tree))
	if len(res.Log) == 0 {
		t.Fatal("AutoFix() made no changes")
	}
	if !document.Equal(tree, original) {
		t.Error("AutoFix() mutated its input")
	}
	if res.Fixed == tree {
		t.Error("AutoFix() returned its input")
	}
}

func TestAutoFixNoIssues(t *testing.T) {
	tree := mustParse(t, `onvif:
  autotracking:
    zoom_factor: 0.8
`)
	res := AutoFix(tree, nil)
	if len(res.Log) != 0 {
		t.Errorf("log = %q, want empty", logLines(res.Log))
	}
	if !document.Equal(res.Fixed, tree) {
		t.Error("AutoFix() changed a tree without issues")
	}
}

func TestAutoFixSkipsPlaceholders(t *testing.T) {
	_, res := autoFix(t, `cameras:
  front:
    ffmpeg:
      inputs:
        - path: rtsp://a
          roles: [detect]
    detect:
      fps: "${FRONT_FPS}"
    live:
      quality: 99
    zones:
      z1:
        coordinates: "${ZONE}"
`)
	if got := lookup(res.Fixed, "cameras", "front", "detect", "fps").Text(); got != "${FRONT_FPS}" {
		t.Errorf("fps = %q, want placeholder kept", got)
	}
	if got := lookup(res.Fixed, "cameras", "front", "zones", "z1", "coordinates").Text(); got != "${ZONE}" {
		t.Errorf("coordinates = %q, want placeholder kept", got)
	}
	if got := lookup(res.Fixed, "cameras", "front", "live", "quality").Value; got != int64(31) {
		t.Errorf("live.quality = %v, want 31", got)
	}
}
