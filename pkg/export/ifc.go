package export

import (
	"fmt"
	"sort"
	"strings"
)

const ifcEncoderName = "ifc-spf"

// EncodeIFC renders the manifest's layered content as a minimal ISO-10303-21
// (STEP physical file) document with one IFCBUILDINGELEMENTPROXY per feature
// and one IFCANNOTATION per overlay, grouped per layer via
// IFCPRESENTATIONLAYERASSIGNMENT. Schema-exact compliance is out of scope.
func EncodeIFC(m *Manifest) ([]byte, error) {
	var b strings.Builder

	b.WriteString("ISO-10303-21;\nHEADER;\n")
	b.WriteString("FILE_DESCRIPTION((''),'2;1');\n")
	fmt.Fprintf(&b, "FILE_NAME('%s','',(''),(''),'','','');\n", ifcEscape(m.Format))
	b.WriteString("FILE_SCHEMA(('IFC4'));\nENDSEC;\nDATA;\n")

	id := 0
	next := func() int {
		id++
		return id
	}

	fmt.Fprintf(&b, "#%d=IFCPROJECT('%s',$,'export',$,$,$,$,$,$);\n", next(), ifcEscape(m.Format))

	layerNames := make([]string, 0, len(m.Layers)+len(m.Overlays))
	for name := range m.Layers {
		layerNames = append(layerNames, name)
	}
	for name := range m.Overlays {
		layerNames = append(layerNames, name)
	}
	sort.Strings(layerNames)

	for _, name := range layerNames {
		var refs []string
		for _, f := range m.Layers[name] {
			n := next()
			fmt.Fprintf(&b, "#%d=IFCBUILDINGELEMENTPROXY('%s',$,'%s',$,$,$,$,$,$);\n", n, ifcEscape(f.ID), ifcEscape(f.Kind))
			refs = append(refs, fmt.Sprintf("#%d", n))
		}
		for _, o := range m.Overlays[name] {
			n := next()
			fmt.Fprintf(&b, "#%d=IFCANNOTATION('%s',$,'%s',$,$,$,$);\n", n, ifcEscape(o.Code), ifcEscape(o.Status))
			refs = append(refs, fmt.Sprintf("#%d", n))
		}
		if len(refs) > 0 {
			fmt.Fprintf(&b, "#%d=IFCPRESENTATIONLAYERASSIGNMENT('%s',$,(%s),$);\n", next(), ifcEscape(name), strings.Join(refs, ","))
		}
	}

	if m.Watermark != "" {
		fmt.Fprintf(&b, "#%d=IFCANNOTATION('%s',$,'watermark',$,$,$,$);\n", next(), ifcEscape(m.Watermark))
	}

	b.WriteString("ENDSEC;\nEND-ISO-10303-21;\n")
	return []byte(b.String()), nil
}

func ifcEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
