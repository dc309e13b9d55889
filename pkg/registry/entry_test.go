// SPDX-License-Identifier: Apache-2.0

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shardmig/shardmig/pkg/registry"
)

func TestSchemaNameMatchesPrefix(t *testing.T) {
	tests := []struct {
		schema   string
		prefix   string
		expected bool
	}{
		{"sh0001", "sh", true},
		{"sharding", "sh", false},
		{"public", "public", true},
		{"sh0001old1234", "sh", true},
		{"sh0000", "sh0000", true},
	}

	for _, tt := range tests {
		t.Run(tt.schema+"/"+tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.expected, registry.SchemaNameMatchesPrefix(tt.schema, tt.prefix))
		})
	}
}

func TestExtractVersion(t *testing.T) {
	version, err := registry.ExtractVersion("20240102030405.add_users.sh")
	assert.NoError(t, err)
	assert.Equal(t, "20240102030405.add_users.sh", version)

	_, err = registry.ExtractVersion("not-a-version")
	assert.Error(t, err)
}
