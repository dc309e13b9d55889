// SPDX-License-Identifier: Apache-2.0

package grid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var codeRe = regexp.MustCompile(`^([A-Za-z_]*)(\d+)$`)

// CollapseRanges compacts a list of "group:code" strings into one entry
// per group, collapsing runs of consecutive zero-padded numeric codes into
// "prefix0001-0003" style ranges for compact progress summaries. Input
// order is preserved; codes within a group are assumed already ordered.
func CollapseRanges(items []string) []string {
	var order []string
	groups := map[string][]string{}

	for _, item := range items {
		group, code, ok := strings.Cut(item, ":")
		if !ok {
			group, code = item, ""
		}
		if _, seen := groups[group]; !seen {
			order = append(order, group)
		}
		groups[group] = append(groups[group], code)
	}

	out := make([]string, 0, len(order))
	for _, group := range order {
		out = append(out, group+":"+collapseGroup(groups[group]))
	}
	return out
}

type run struct {
	prefix     string
	width      int
	start, end int
	literal    string // used when the code didn't parse as prefix+digits
	isLiteral  bool
}

func collapseGroup(codes []string) string {
	var runs []run

	for _, code := range codes {
		m := codeRe.FindStringSubmatch(code)
		if m == nil {
			runs = append(runs, run{literal: code, isLiteral: true})
			continue
		}
		prefix, numStr := m[1], m[2]
		n, err := strconv.Atoi(numStr)
		if err != nil {
			runs = append(runs, run{literal: code, isLiteral: true})
			continue
		}
		width := len(numStr)

		if len(runs) > 0 {
			last := &runs[len(runs)-1]
			if !last.isLiteral && last.prefix == prefix && last.width == width && n == last.end+1 {
				last.end = n
				continue
			}
		}
		runs = append(runs, run{prefix: prefix, width: width, start: n, end: n})
	}

	parts := make([]string, 0, len(runs))
	for i, r := range runs {
		if r.isLiteral {
			parts = append(parts, r.literal)
			continue
		}
		var numeric string
		if r.start == r.end {
			numeric = fmt.Sprintf("%0*d", r.width, r.start)
		} else {
			numeric = fmt.Sprintf("%0*d-%0*d", r.width, r.start, r.width, r.end)
		}
		if i == 0 {
			parts = append(parts, r.prefix+numeric)
		} else {
			parts = append(parts, numeric)
		}
	}

	return strings.Join(parts, ",")
}
