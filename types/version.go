package types

// Version is the canonical project version.
// The CLI, marker record format and notification payloads share this version.
const Version = "0.3.0"

// MarkerFormatVersion is stamped into every completion marker record.
// Bump it only when the record layout changes incompatibly.
const MarkerFormatVersion = 1
