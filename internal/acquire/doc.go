// Package acquire obtains the per-platform Android Studio archives of one
// build and validates the artifact directory before anything is
// extracted.
//
// # Acquisition
//
// Archives are fetched by an external fetch tool, one glob pattern at a
// time, into a fresh temporary directory. Which tool is used depends on
// the credentials available on the host:
//   - when the certificate status tool is installed it must succeed, and
//     the internal fetch tool is used
//   - otherwise the packaged fetch tool is used with OAuth
//
// A failing fetch is only logged. The artifact directory is always gated
// by CheckArtifacts, which reports exactly what is missing.
//
// # Verification
//
// Verifier checks a SHA256SUMS file and detached OpenPGP signatures when
// they are present next to the artifacts.
package acquire
