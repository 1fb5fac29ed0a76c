package media

import (
	"fmt"
	"strings"
)

// AtempoChain decomposes a tempo factor into a chain of atempo filters,
// each within ffmpeg's supported [0.5, 2.0] range. The factors multiply
// back to the requested tempo.
func AtempoChain(tempo float64) string {
	if tempo >= 0.5 && tempo <= 2.0 {
		return fmt.Sprintf("atempo=%g", tempo)
	}

	var filters []string
	if tempo < 0.5 {
		for tempo < 0.5 {
			filters = append(filters, "atempo=0.5")
			tempo *= 2
		}
	} else {
		for tempo > 2.0 {
			filters = append(filters, "atempo=2.0")
			tempo /= 2
		}
	}
	filters = append(filters, fmt.Sprintf("atempo=%g", tempo))
	return strings.Join(filters, ",")
}
