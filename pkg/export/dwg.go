package export

// DWG is a closed binary format with no encoder available in the ecosystem,
// so the default DWG writer ships without a native encoder and every render
// takes the deterministic JSON fallback. Deployments holding a licensed
// converter inject it by registering
//
//	registry.Register(export.NewWriter(export.FormatDWG, "oda-teigha", encoder))
//
// over the default; orchestration logic is unaffected either way.
