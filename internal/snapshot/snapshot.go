// Package snapshot keeps versioned local copies of remote records.
//
// A snapshot is never overwritten: saving "bib991.xml" twice in the same
// directory produces "bib991_01.xml" and "bib991_02.xml". Loading picks the
// lexicographically last name starting with a prefix.
package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// splitName splits "bib991.xml" into "bib991" and "xml".
func splitName(name string) (string, string, error) {
	dot := strings.LastIndex(name, ".")
	if dot <= 0 || dot == len(name)-1 {
		return "", "", fmt.Errorf("%w: %s", constants.ErrMissingExtension, name)
	}

	return name[:dot], name[dot+1:], nil
}

// versionedName returns the name of the next version of base given the names
// already present in its directory. The version is the number of existing
// names containing the stem of base, plus one.
func versionedName(existing []string, base string) (string, error) {
	stem, ext, err := splitName(base)
	if err != nil {
		return "", err
	}

	count := 0

	for _, name := range existing {
		if strings.Contains(name, stem) {
			count++
		}
	}

	return fmt.Sprintf("%s_%0*d.%s", stem, constants.VersionWidth, count+1, ext), nil
}

// latestName returns the lexicographically last name starting with prefix.
func latestName(names []string, prefix string) (string, bool) {
	matching := make([]string, 0, len(names))

	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			matching = append(matching, name)
		}
	}

	if len(matching) == 0 {
		return "", false
	}

	sort.Strings(matching)

	return matching[len(matching)-1], true
}

// parseSnapshot decodes data according to the extension of name.
func parseSnapshot(name string, data []byte) (alma.Payload, error) {
	_, ext, err := splitName(name)
	if err != nil {
		return nil, err
	}

	payload, err := alma.ParsePayload(alma.Format(strings.ToLower(ext)), data)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", name, err)
	}

	return payload, nil
}
