// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"

	"github.com/shardmig/shardmig/pkg/dest"
)

// Bootstrap is the one-time per-fleet setup action: for every host,
// optionally create the target database, then create the default-schema
// bookkeeping functions
// (mig_digest_const, mig_rerun_fingerprint_const) if they don't already
// exist, so a brand-new host can join the fleet without Apply special-
// casing an absent function as "not yet initialized" versus "genuinely
// never migrated".
func Bootstrap(ctx context.Context, hosts []*dest.Dest, createDB bool, onRetry func(host string, attempt int, err error)) error {
	for _, h := range hosts {
		if createDB {
			host := h
			err := h.CreateDB(ctx, func(attempt int, err error) {
				if onRetry != nil {
					onRetry(host.Host, attempt, err)
				}
			})
			if err != nil {
				return err
			}
		}

		digest, err := h.LoadDigest(ctx)
		if err != nil {
			return err
		}
		if digest == "" {
			if err := h.SaveDigest(ctx, "0"); err != nil {
				return err
			}
		}

		fp, err := h.LoadRerunFingerprint(ctx)
		if err != nil {
			return err
		}
		if fp == "" {
			dest.SaveRerunFingerprint(ctx, []*dest.Dest{h}, "")
		}
	}
	return nil
}
