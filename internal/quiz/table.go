package quiz

import (
	"fmt"
	"strings"
)

// Table renders the multiplication table for n, rows 1 through 10.
func Table(n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MULTIPLICATION TABLE FOR %d\n\n", n)
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&sb, "%d × %2d = %3d\n", n, i, n*i)
	}
	return sb.String()
}
