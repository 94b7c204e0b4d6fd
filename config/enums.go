package config

//go:generate go tool go-enum --marshal --names

// Handling of "data:" image references.
//
// general: WHATWG data URL processing, SVG payloads are measured as SVG text
// decoded using charset parameter, everything else is handed to raster decoder.
//
// simplified: any reference starting with "data:image/" is handed to raster
// decoder, SVG payloads cannot be measured.
// ENUM(general, simplified)
type DataURLDialect int

// Pipeline stage at which natural size scaling is applied to markdown sources.
//
// ast: on goldmark AST, only markdown images are considered, attribute values
// keep their types.
//
// html: on rendered HTML, raw <img> elements are considered too, all
// attribute values are strings.
// ENUM(ast, html)
type Stage int
