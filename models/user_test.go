package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"plumbing", "electrical"},
		NormalizeTags([]string{" Plumbing", "ELECTRICAL ", ""}))
	assert.Empty(t, NormalizeTags([]string{"", "  "}))
}

func TestJoinAndSplitTags(t *testing.T) {
	joined := JoinTags([]string{"Plumbing", " Electrical"})
	assert.Equal(t, "plumbing,electrical", joined)
	assert.Equal(t, []string{"plumbing", "electrical"}, SplitTags(joined))
	assert.Nil(t, SplitTags(""))
}

func TestUserSpecializations(t *testing.T) {
	u := User{Specialization: "plumbing,electrical"}
	assert.Equal(t, []string{"plumbing", "electrical"}, u.Specializations())
}

func TestHasCoordinates(t *testing.T) {
	lat, lng := 19.076, 72.8777
	assert.True(t, (&User{Lat: &lat, Lng: &lng}).HasCoordinates())
	assert.False(t, (&User{Lat: &lat}).HasCoordinates())
	assert.False(t, (&User{}).HasCoordinates())
}
