// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadErrorFallsBackToReason(t *testing.T) {
	assert.Equal(t, "boom", LoadError{Reason: "boom"}.Error())
	assert.Equal(t, "foo.sql: boom", LoadError{Path: "foo.sql", Reason: "boom"}.Error())
}

func TestMissingPairErrorMessage(t *testing.T) {
	err := MissingPairError{Base: "20240101000000.init.sh", Want: "dn"}
	assert.Contains(t, err.Error(), "missing dn file")
}

func TestPrefixAmbiguityErrorMessage(t *testing.T) {
	err := PrefixAmbiguityError{Schema: "sh0001", First: "sh0001", Second: "sh000x"}
	msg := err.Error()
	assert.Contains(t, msg, "sh0001")
	assert.Contains(t, msg, "sh000x")
}
