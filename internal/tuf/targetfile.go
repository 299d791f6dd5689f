// SPDX-License-Identifier: Apache-2.0

package tuf

import "encoding/json"

// TargetFileInfo is the value type a Targets role's `targets` map holds for
// every path it declares directly (as opposed to delegating further down the
// tree). It records exactly what the Verifier checks a served target's
// bytes against: the file's length and a set of digests keyed by algorithm
// name (conventionally "sha256").
type TargetFileInfo struct {
	Length int64             `json:"length"`
	Hashes map[string]string `json:"hashes"`
}

// AsTargetFileInfo normalizes one entry of a TargetsMetadata.Targets map
// into a TargetFileInfo. Entries loaded from JSON arrive as map[string]any;
// entries built programmatically (by maintenance tooling) may already be a
// TargetFileInfo. Both round-trip through json (de)serialization so either
// input shape is accepted uniformly.
func AsTargetFileInfo(v any) (TargetFileInfo, error) {
	if info, ok := v.(TargetFileInfo); ok {
		return info, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return TargetFileInfo{}, err
	}

	var info TargetFileInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return TargetFileInfo{}, err
	}
	return info, nil
}
