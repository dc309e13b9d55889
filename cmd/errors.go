// SPDX-License-Identifier: Apache-2.0

package cmd

import "errors"

var errNoHosts = errors.New("no hosts configured, set --hosts")
