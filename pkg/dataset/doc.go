// Package dataset models clinical imaging records as DICOM JSON Model
// documents: flat tag/value maps keyed by 8-hex-digit tags, where each
// element carries a value representation (VR) and a list of values.
//
// The package deliberately does not parse binary DICOM. Records enter the
// pipeline already transcoded to the JSON model by the conversion
// collaborator; this package provides the in-memory model, a primary JSON
// codec, and a second, independent YAML-based decode path used by the
// durable writer to cross-check its own output.
package dataset
