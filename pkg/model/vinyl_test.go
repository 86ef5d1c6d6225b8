package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVinylPatchApply(t *testing.T) {
	v := Vinyl{Title: "Kind of Blue", Artist: "Miles Davis", Year: 1959, Price: 2999, Stock: 3}

	title, price := "Blue Train", int64(1999)
	VinylPatch{Title: &title, Price: &price}.Apply(&v)

	assert.Equal(t, Vinyl{Title: "Blue Train", Artist: "Miles Davis", Year: 1959, Price: 1999, Stock: 3}, v)

	VinylPatch{}.Apply(&v)
	assert.Equal(t, "Blue Train", v.Title, "empty patch changes nothing")
}
