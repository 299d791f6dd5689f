// SPDX-License-Identifier: Apache-2.0

package dependency

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FullName is an authentication repository's namespace-qualified identity,
// the key shape dependencies.json and repositories.json both use.
type FullName struct {
	Namespace string
	Name      string
}

func (f FullName) String() string {
	return f.Namespace + "/" + f.Name
}

// ParseFullName splits a "<namespace>/<name>" key. Namespaces never
// contain a slash, so the first one found is the separator.
func ParseFullName(key string) (FullName, error) {
	idx := strings.IndexByte(key, '/')
	if idx <= 0 || idx == len(key)-1 {
		return FullName{}, fmt.Errorf("malformed dependency name %q: expected <namespace>/<name>", key)
	}
	return FullName{Namespace: key[:idx], Name: key[idx+1:]}, nil
}

// ExpectedPath is the conventional on-disk location of a dependency AR
// relative to the root AR's library root.
func ExpectedPath(libraryRoot string, full FullName) string {
	return filepath.Join(libraryRoot, full.Namespace, full.Name)
}
