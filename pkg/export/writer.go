package export

import "fmt"

// Encoder is a native, format-specific encoding of a manifest's layered
// content into payload bytes. Encoders are injected per format; a writer
// without one, or whose encoder fails for any reason, falls back to the
// manifest's canonical JSON encoding. Encoder failure is never visible to
// the caller as an error.
type Encoder func(*Manifest) ([]byte, error)

// Writer renders layered features and overlays into payload bytes plus a
// manifest. Writers are state-free; rendering never fails.
type Writer interface {
	Format() Format
	Render(features []Feature, overlays []OverlayFeature, watermark string, opts Options) ([]byte, *Manifest)
}

type formatWriter struct {
	format      Format
	encoderName string
	encoder     Encoder
}

// NewWriter builds a writer for a format. encoder may be nil, in which case
// every render takes the fallback path. encoderName becomes the manifest's
// renderer tag when the encoder succeeds.
func NewWriter(format Format, encoderName string, encoder Encoder) Writer {
	return &formatWriter{format: format, encoderName: encoderName, encoder: encoder}
}

func (w *formatWriter) Format() Format {
	return w.format
}

func (w *formatWriter) Render(features []Feature, overlays []OverlayFeature, watermark string, opts Options) ([]byte, *Manifest) {
	manifest := newManifest(w.format, features, overlays, watermark, opts)

	if w.encoder != nil {
		if payload, err := safeEncode(w.encoder, manifest); err == nil {
			manifest.Renderer = w.encoderName
			return payload, manifest
		}
		// Partial native output is discarded; the fallback payload below is
		// rebuilt purely from the manifest.
	}

	payload, err := manifest.Encode()
	if err != nil {
		// Manifests are built from JSON-safe values, so this only trips on a
		// caller smuggling an unmarshalable property through. Degrade to an
		// empty JSON document rather than failing the export.
		payload = []byte("{}")
	}
	return payload, manifest
}

func safeEncode(encoder Encoder, m *Manifest) (payload []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("native encoder panicked: %v", r)
		}
	}()
	return encoder(m)
}

// Registry maps formats to writers. It is constructed explicitly and handed
// to the orchestrator; there is no package-level mutable registry.
type Registry struct {
	writers map[Format]Writer
}

// NewRegistry returns a registry with the default writer set: DXF and IFC
// backed by their native text encoders, DWG and PDF on the fallback path.
func NewRegistry() *Registry {
	r := &Registry{writers: make(map[Format]Writer)}
	r.Register(NewWriter(FormatDXF, dxfEncoderName, EncodeDXF))
	r.Register(NewWriter(FormatDWG, "", nil))
	r.Register(NewWriter(FormatIFC, ifcEncoderName, EncodeIFC))
	r.Register(NewWriter(FormatPDF, "", nil))
	return r
}

// Register adds or replaces the writer for its format. Callers substitute a
// native-backed writer without touching orchestration logic.
func (r *Registry) Register(w Writer) {
	r.writers[w.Format()] = w
}

// Writer returns the writer registered for a format.
func (r *Registry) Writer(format Format) (Writer, bool) {
	w, ok := r.writers[format]
	return w, ok
}
