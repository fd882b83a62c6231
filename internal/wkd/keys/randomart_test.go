package keys

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomart(t *testing.T) {
	fp, err := hex.DecodeString("5025222ebecf8ecf7014524c0c1c8b81cdcdaed754df8e0e814338e7064f7084")
	require.NoError(t, err)

	want := strings.Join([]string{
		"+--[ED25519 256]--+",
		"|o+oO==+ o..      |",
		"|.o++Eo+o..       |",
		"|. +.oO.o . .     |",
		"| . o..B.. . .    |",
		"|  ...+ .S. o     |",
		"|  .o. . . . .    |",
		"|  o..    o       |",
		"|   B      .      |",
		"|  .o*            |",
		"+----[SHA256]-----+",
	}, "\n")

	assert.Equal(t, want, Randomart(fp, "ED25519 256", "SHA256"))
}

func TestRandomartRSAKey(t *testing.T) {
	fp, err := hex.DecodeString("AC48BC1F029B6188D97E2D807C855DB4466DF0C6")
	require.NoError(t, err)

	want := strings.Join([]string{
		"+------[RSA]------+",
		"|      .=o        |",
		"|    o o +o       |",
		"|   . o o.E       |",
		"|o= .. ...        |",
		"|=.*.o   S        |",
		"| o.B + .         |",
		"|  + * +          |",
		"|   . + .         |",
		"|      .          |",
		"+-----[SHA1]------+",
	}, "\n")

	assert.Equal(t, want, Randomart(fp, "RSA", "SHA1"))
}

func TestRandomartFrame(t *testing.T) {
	art := Randomart(make([]byte, 20), "RSA", "SHA1")
	lines := strings.Split(art, "\n")

	require.Len(t, lines, artHeight+2)
	assert.Equal(t, "+------[RSA]------+", lines[0])
	assert.Equal(t, "+-----[SHA1]------+", lines[len(lines)-1])
	for _, line := range lines[1 : len(lines)-1] {
		assert.Len(t, line, artWidth+2)
	}
	field := strings.Join(lines[1:len(lines)-1], "\n")
	assert.Equal(t, 1, strings.Count(field, "S"))
	assert.Equal(t, 1, strings.Count(field, "E"))
	// an all-zero walk runs into the top-left corner and ends there
	assert.Equal(t, "|E", lines[1][:2])
}

func TestRandomartLongHeaderIsNotTruncated(t *testing.T) {
	art := Randomart([]byte{0xff}, "A VERY LONG HEADER NAME", "SHA1")
	assert.True(t, strings.HasPrefix(art, "+[A VERY LONG HEADER NAME]+\n"))
}
