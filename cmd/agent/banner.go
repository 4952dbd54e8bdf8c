package main

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

const (
	colorReset = "\x1b[0m"
	colorCyan  = "\x1b[1;36m"
)

func printBanner(w io.Writer) {
	fig := figure.NewFigure("atlas agent", "", true)
	for _, line := range fig.Slicify() {
		fmt.Fprintln(w, colorCyan+line+colorReset)
	}
	fmt.Fprintf(w, "%sversion %s%s\n\n", colorCyan, version, colorReset)
}
