// domcolour extracts a luminance-ordered colour ramp from the dominant
// colours of an image.
package main

import (
	"github.com/jmylchreest/domcolour/internal/cli"
)

func main() {
	cli.Execute()
}
