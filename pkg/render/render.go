// Package render provides output renderers for suite report patterns.
package render

import "github.com/dkoosis/simrun/pkg/pattern"

// Renderer converts patterns to formatted output.
type Renderer interface {
	Render(patterns []pattern.Pattern) string
}
