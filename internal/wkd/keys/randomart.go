package keys

import "strings"

const (
	artWidth  = 17
	artHeight = 9
	artValues = " .o+=*BOX@%&#/^SE"
)

// artStart and artEnd are the symbols marking where the walk began and ended.
var (
	artEnd   = byte(len(artValues) - 1)
	artStart = artEnd - 1
)

// Randomart draws the OpenSSH "drunken bishop" visualisation of a fingerprint.
// header and footer are framed in brackets and centred on the border.
func Randomart(fingerprint []byte, header, footer string) string {
	var field [artHeight][artWidth]byte
	x, y := artWidth/2, artHeight/2

	for _, b := range fingerprint {
		for range 4 {
			if b&0x1 == 0 {
				x = max(x-1, 0)
			} else {
				x = min(x+1, artWidth-1)
			}
			if b&0x2 == 0 {
				y = max(y-1, 0)
			} else {
				y = min(y+1, artHeight-1)
			}

			if field[y][x] < artStart-1 {
				field[y][x]++
			}
			b >>= 2
		}
	}

	field[artHeight/2][artWidth/2] = artStart
	field[y][x] = artEnd

	var sb strings.Builder
	sb.WriteString("+" + centre("["+header+"]", artWidth) + "+\n")
	for _, row := range field {
		sb.WriteByte('|')
		for _, c := range row {
			sb.WriteByte(artValues[c])
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("+" + centre("["+footer+"]", artWidth) + "+")
	return sb.String()
}

func centre(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat("-", left) + s + strings.Repeat("-", pad-left)
}
