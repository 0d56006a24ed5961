package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"            _ _  __ _",
	"   ___ __ _| | |/ _| | _____      __",
	"  / __/ _` | | | |_| |/ _ \\ \\ /\\ / /",
	" | (_| (_| | | |  _| | (_) \\ V  V /",
	"  \\___\\__,_|_|_|_| |_|\\___/ \\_/\\_/",
}

var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

// PrintBanner writes the callflow banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	fmt.Fprintln(w)
}
