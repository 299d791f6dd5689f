// SPDX-License-Identifier: Apache-2.0

// Package comparator implements the Target Comparator (C5): cross-checking
// each target repository's fetched commit sequence on a branch against the
// sequence of commits authorized for it across an authentication
// repository's commit chain.
package comparator

import "strings"

// ResolveURLs substitutes `{org_name}` and `{repo_name}` into each mirror
// template in order, for a target repository named `<namespace>/<name>`.
// Only those two placeholders are defined; any other `{...}` in a template
// passes through unchanged.
func ResolveURLs(templates []string, namespace, name string) []string {
	resolved := make([]string, len(templates))
	for i, template := range templates {
		url := strings.ReplaceAll(template, "{org_name}", namespace)
		url = strings.ReplaceAll(url, "{repo_name}", name)
		resolved[i] = url
	}
	return resolved
}
