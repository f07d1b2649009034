package export

// The default PDF writer has no native encoder: plan-sheet PDF generation
// belongs to the reporting collaborator, and an export that merely needs the
// layered structure is served by the JSON fallback. A PDF renderer can be
// injected the same way as any other native encoder:
//
//	registry.Register(export.NewWriter(export.FormatPDF, "plansheet", encoder))
