package types

// Version is the canonical project version.
// The CLI and the adapter event envelopes share this version.
const Version = "1.0.0"
