// Package writer commits de-identified records to their final location with
// crash safety. A commit writes to a temporary file in the destination
// directory, re-parses it with two independent decoders, then atomically
// replaces the destination. Any step failing removes the temporary artifact
// and leaves the pre-existing destination untouched, so the output directory
// never contains a half-written or unverified file.
package writer
