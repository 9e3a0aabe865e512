package ui

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Makepad-fr/foodchain/internal/model"
)

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiRegexp.ReplaceAllString(s, "") }

func visibleWidth(s string) int { return utf8.RuneCountInString(stripANSI(s)) }

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if max < 4 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}

// Panel draws a framed box using the current theme.
func Panel(lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if w := visibleWidth(ln); w > maxw {
			maxw = w
		}
	}
	pad := func(s string) string {
		if vis := visibleWidth(s); vis < maxw {
			s += strings.Repeat(" ", maxw-vis)
		}
		return s
	}
	fmt.Fprintln(stdout, t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR)
	for _, ln := range lines {
		fmt.Fprintln(stdout, t.V+" "+pad(ln)+" "+t.V)
	}
	fmt.Fprintln(stdout, t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR)
}

// Header is the "Tracked Items" line with the account and item count.
func Header(account string, count int) string {
	t := Current()
	acct := C(t.Muted, "not connected")
	if account != "" {
		acct = account
	}
	return fmt.Sprintf("%s   %s %s   %s %d",
		C(t.Title, "FoodChain Tracker"),
		C(t.Accent, t.Account), acct,
		C(t.Accent, "Items"), count)
}

// ItemLines renders one line per item: id, name, origin and when it was added.
func ItemLines(items []model.Item) []string {
	t := Current()
	if len(items) == 0 {
		return []string{C(t.Muted, "no items")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s %s %s  %s  %s",
			C(t.Muted, fmt.Sprintf("%3d.", it.ID)),
			C(t.Success, t.Bullet),
			Truncate(it.Name, 48),
			C(t.Accent, "From: "+Truncate(it.Origin, 32)),
			C(t.Muted, "Added: "+it.Added())))
	}
	return out
}
