package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "front-door", Slugify("Front Door"))
	assert.Equal(t, "garage-2", Slugify("Garage #2"))
	assert.Equal(t, "entree", Slugify("Entrée"))
	assert.Equal(t, "a-b", Slugify("--A  B--"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "READY", Normalize("  READY \x00 "))
}
