package export

import (
	"fmt"
	"sort"
	"strings"
)

const dxfEncoderName = "dxf-tagged"

// EncodeDXF renders the manifest's layered content as a minimal ASCII DXF
// document: a LAYER table plus one TEXT entity per feature and overlay.
// Byte-exact vendor compliance is out of scope; the output is a well-formed
// tagged-section document that common viewers accept.
func EncodeDXF(m *Manifest) ([]byte, error) {
	var b strings.Builder

	tag := func(code int, value string) {
		fmt.Fprintf(&b, "%d\n%s\n", code, value)
	}

	layerNames := make([]string, 0, len(m.Layers)+len(m.Overlays))
	for name := range m.Layers {
		layerNames = append(layerNames, name)
	}
	for name := range m.Overlays {
		layerNames = append(layerNames, name)
	}
	sort.Strings(layerNames)

	tag(0, "SECTION")
	tag(2, "HEADER")
	tag(9, "$ACADVER")
	tag(1, "AC1015")
	tag(0, "ENDSEC")

	tag(0, "SECTION")
	tag(2, "TABLES")
	tag(0, "TABLE")
	tag(2, "LAYER")
	for _, name := range layerNames {
		tag(0, "LAYER")
		tag(2, name)
		tag(70, "0")
	}
	tag(0, "ENDTAB")
	tag(0, "ENDSEC")

	tag(0, "SECTION")
	tag(2, "ENTITIES")
	for _, name := range layerNames {
		for _, f := range m.Layers[name] {
			tag(0, "TEXT")
			tag(8, name)
			tag(1, fmt.Sprintf("%s:%s", f.Kind, f.ID))
		}
		for _, o := range m.Overlays[name] {
			tag(0, "TEXT")
			tag(8, name)
			tag(1, fmt.Sprintf("%s[%s]", o.Code, o.Status))
		}
	}
	if m.Watermark != "" {
		tag(0, "TEXT")
		tag(8, "WATERMARK")
		tag(1, m.Watermark)
	}
	tag(0, "ENDSEC")
	tag(0, "EOF")

	return []byte(b.String()), nil
}
