package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// maxMissingReport caps how many missing files the error message lists.
const maxMissingReport = 5

// splitName decomposes a frame filename into (prefix, digit run, suffix).
type splitName struct {
	prefix string
	suffix string
	digits int
	n      int
}

// splitFile finds the trailing digit run of a filename's stem. A dot at
// position 0 is not treated as an extension separator.
func splitFile(name string) (splitName, error) {
	if name == "" {
		return splitName{}, fmt.Errorf("empty file name")
	}

	var res splitName
	stem := name
	if dpos := strings.LastIndexByte(name, '.'); dpos > 0 {
		res.suffix = name[dpos:]
		stem = name[:dpos]
	}

	nstart := strings.LastIndexFunc(stem, func(r rune) bool {
		return r < '0' || r > '9'
	}) + 1
	res.prefix = stem[:nstart]
	res.digits = len(stem) - nstart
	if res.digits > 0 {
		n, err := strconv.Atoi(stem[nstart:])
		if err != nil {
			return splitName{}, fmt.Errorf("bad frame number in %q: %w", name, err)
		}
		res.n = n
	}
	return res, nil
}

// ExpandRanges turns (first, last) filename pairs into the full frame
// list. Prefixes, suffixes and digit widths must match within a pair and
// the numbers must not decrease.
func ExpandRanges(pairs []string) ([]string, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("files should come in pairs of first_file, last_file")
	}

	var files []string
	for i := 0; i < len(pairs); i += 2 {
		first, last := pairs[i], pairs[i+1]

		firstSplit, err := splitFile(first)
		if err != nil {
			return nil, err
		}
		lastSplit, err := splitFile(last)
		if err != nil {
			return nil, err
		}

		if firstSplit.prefix != lastSplit.prefix ||
			firstSplit.suffix != lastSplit.suffix ||
			firstSplit.digits != lastSplit.digits {
			return nil, fmt.Errorf("non-matching pair of file names (%s, %s)", first, last)
		}
		if firstSplit.n > lastSplit.n {
			return nil, fmt.Errorf("file numbers need to be increasing (%s, %s)", first, last)
		}

		for n := firstSplit.n; n <= lastSplit.n; n++ {
			files = append(files, fmt.Sprintf("%s%0*d%s",
				firstSplit.prefix, firstSplit.digits, n, firstSplit.suffix))
		}
	}
	return files, nil
}

// CheckMissing verifies every file is readable before any work starts.
// The error lists up to maxMissingReport names, then elides the rest.
func CheckMissing(files []string) error {
	var missing []string
	for _, f := range files {
		fh, err := os.Open(f)
		if err != nil {
			missing = append(missing, f)
			if len(missing) > maxMissingReport {
				break
			}
			continue
		}
		fh.Close()
	}
	if len(missing) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("some files are missing or unreadable (")
	shown := len(missing)
	if shown > maxMissingReport {
		shown = maxMissingReport
	}
	for i := 0; i < shown; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(missing[i])
	}
	if len(missing) > maxMissingReport {
		sb.WriteString(", ...")
	}
	sb.WriteString(")")
	return fmt.Errorf("%s", sb.String())
}
