// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Digest returns "<order>.<hash>" where <order> is the numeric timestamp
// prefix of the last version on disk (lexicographically greatest), or "0"
// if there are no versions, and <hash> is the hex SHA-256 of the
// newline-joined sorted version names.
func (r *Registry) Digest() string {
	return r.digest(false)
}

// ShortDigest truncates the hash component to 16 hex characters.
func (r *Registry) ShortDigest() string {
	return r.digest(true)
}

func (r *Registry) digest(short bool) string {
	names := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		names[i] = e.Name
	}
	sort.Strings(names)

	order := "0"
	if len(names) > 0 {
		last := names[len(names)-1]
		ts := last
		if idx := strings.IndexByte(last, '.'); idx >= 0 {
			ts = last[:idx]
		}
		if _, err := strconv.ParseUint(ts, 10, 64); err == nil {
			order = ts
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(names, "\n")))
	hash := hex.EncodeToString(sum[:])
	if short {
		hash = hash[:16]
	}

	return order + "." + hash
}

// isRealDigest reports whether d has the form "<digits>.<hash>" as opposed
// to a reset label of the form "0.<label>".
func isRealDigest(d string) bool {
	idx := strings.IndexByte(d, '.')
	if idx <= 0 {
		return false
	}
	order := d[:idx]
	if order == "0" {
		return false
	}
	_, err := strconv.ParseUint(order, 10, 64)
	return err == nil
}

// ChooseBestDigest picks the digest the fleet should be trusted at: the
// database is at least as new as any recorded digest, and a partial undo
// is visible as a less-than-any-code digest. It partitions the provided
// digests into real digests and reset labels, preferring the
// lexicographically greatest real digest, falling back to
// "0.<smallest reset label>", and finally "0" if nothing was provided.
func ChooseBestDigest(digests []string) string {
	var reals, resets []string
	for _, d := range digests {
		if d == "" {
			continue
		}
		if isRealDigest(d) {
			reals = append(reals, d)
		} else {
			label := d
			if idx := strings.IndexByte(d, '.'); idx >= 0 {
				label = d[idx+1:]
			}
			resets = append(resets, label)
		}
	}

	if len(reals) > 0 {
		sort.Strings(reals)
		return reals[len(reals)-1]
	}
	if len(resets) > 0 {
		sort.Strings(resets)
		return "0." + resets[0]
	}
	return "0"
}
