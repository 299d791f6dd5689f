// SPDX-License-Identifier: Apache-2.0

package tufverify

import "errors"

// Sentinel errors for the Authentication error class. VerifyTransition wraps
// one of these with fmt.Errorf("%w: ...") so callers can still use
// errors.Is against the bare sentinel while getting a descriptive message.
var (
	ErrOutOfBandMismatch         = errors.New("out-of-band pinned commit does not match")
	ErrSignatureInvalid          = errors.New("signature invalid")
	ErrThresholdUnmet            = errors.New("threshold of valid signatures not met")
	ErrVersionRegression         = errors.New("role version regressed")
	ErrVersionSkip               = errors.New("role version advanced by more than one")
	ErrUnsupportedAlgorithm      = errors.New("unsupported signature algorithm")
	ErrMetadataMissing           = errors.New("required role metadata is missing")
	ErrSnapshotTimestampMismatch = errors.New("timestamp does not match snapshot")
	ErrTargetHashMismatch        = errors.New("target file hash or length does not match recorded metadata")

	// ErrMetadataExpired and ErrUnknownCustomField are warnings: recorded but
	// non-fatal unless the caller runs in strict mode.
	ErrMetadataExpired    = errors.New("role metadata has expired")
	ErrUnknownCustomField = errors.New("role metadata contains an unrecognized custom field")
)
