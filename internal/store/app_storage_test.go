package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_validUUIDs(t *testing.T) {
	const (
		a = "6f1c2a8e-3b4d-4c5e-9f60-718293a4b5c6"
		b = "0b6e1f2a-9c3d-4e5f-8a70-1b2c3d4e5f60"
	)
	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{name: "all valid", ids: []string{a, b}, want: []string{a, b}},
		{name: "bogus ids are dropped", ids: []string{a, "bogus", "", b}, want: []string{a, b}},
		{name: "nothing valid", ids: []string{"nobody", "42"}, want: []string{}},
		{name: "empty", ids: nil, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validUUIDs(tt.ids))
		})
	}
}

func Test_isUUID(t *testing.T) {
	assert.True(t, isUUID("6f1c2a8e-3b4d-4c5e-9f60-718293a4b5c6"))
	assert.False(t, isUUID("room-1"))
	assert.False(t, isUUID(""))
	assert.False(t, isUUID("urn:uuid:6f1c2a8e-3b4d-4c5e-9f60-718293a4b5c6"))
}
