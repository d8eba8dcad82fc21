package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "", MaskPhone("  "))
	assert.Equal(t, "****", MaskPhone("123"))
	assert.Equal(t, "****789", MaskPhone("081234567789"))
}

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"phone":           "081234567789",
		"customer_number": 12,
		"":                "dropped",
		"before":          map[string]any{"address": "Jl. Mawar 3"},
	})

	assert.Equal(t, "****789", out["phone"])
	assert.Equal(t, 12, out["customer_number"])
	assert.NotContains(t, out, "")
	assert.Equal(t, "****r 3", out["before"].(map[string]any)["address"])
}
