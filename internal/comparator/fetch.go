// SPDX-License-Identifier: Apache-2.0

package comparator

import (
	"fmt"
	"log/slog"

	"github.com/openlawlibrary/taf/internal/gitinterface"
)

// FetchWithFallback tries each URL in order, returning the first bare
// repository handle that fetches successfully. Discarded attempts are
// logged at debug level rather than silently swallowed, matching
// spec.md §9's "log discarded attempts" note for the mirror-list fold.
func FetchWithFallback(urls []string, dir string, refs []string) (*gitinterface.Repository, error) {
	var lastErr error

	for _, url := range urls {
		repo, err := gitinterface.FetchBare(url, dir, refs)
		if err == nil {
			return repo, nil
		}

		slog.Debug("mirror fetch failed, trying next", "url", url, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: all %d mirror(s) failed, last error: %v", ErrFetchError, len(urls), lastErr)
}
