package frigate

import (
	"strconv"

	"github.com/haasonsaas/yamldoctor/internal/document"
)

// cameraView is one camera record regardless of whether cameras was written
// as a keyed mapping or as a list.
type cameraView struct {
	// name is the effective camera name: the name field when present,
	// otherwise the mapping key. Empty for unnamed list entries.
	name string
	// key is the mapping key; empty for list entries.
	key   string
	index int
	node  *document.Node
	path  document.Path
}

func (c cameraView) fromList() bool {
	return c.index >= 0
}

// nameField returns the camera's explicit name field, if it is a string.
func nameField(cam *document.Node) (string, bool) {
	return cam.Get("name").String()
}

// cameraViews lists the cameras under the cameras section in declaration
// order. Non-mapping entries are skipped.
func cameraViews(cameras *document.Node) []cameraView {
	base := document.ParsePath("cameras")
	var views []cameraView
	switch {
	case cameras.IsMapping():
		for _, p := range cameras.Pairs {
			if !p.Value.IsMapping() {
				continue
			}
			name := p.Key
			if n, ok := nameField(p.Value); ok {
				name = n
			}
			views = append(views, cameraView{
				name:  name,
				key:   p.Key,
				index: -1,
				node:  p.Value,
				path:  base.Key(p.Key),
			})
		}
	case cameras.IsSequence():
		for i, item := range cameras.Items {
			if !item.IsMapping() {
				continue
			}
			name, _ := nameField(item)
			views = append(views, cameraView{
				name:  name,
				index: i,
				node:  item,
				path:  base.Index(i),
			})
		}
	}
	return views
}

// listCameraKey is the key a list entry receives when cameras is converted
// to a mapping.
func listCameraKey(c cameraView) string {
	if c.name != "" {
		return c.name
	}
	return cameraKeyPrefix + strconv.Itoa(c.index)
}
