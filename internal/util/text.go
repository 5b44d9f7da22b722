// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "github.com/mattn/go-runewidth"

// Ellipsis is the single-character ellipsis used for abbreviated labels.
const Ellipsis = "…"

// Abbreviate returns the first n runes of s followed by an ellipsis.
// The ellipsis is always appended, matching how short identifiers are
// labelled ("Session: 1a2b3c4d…"). A non-positive n yields just the ellipsis.
func Abbreviate(s string, n int) string {
	if n <= 0 {
		return Ellipsis
	}
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + Ellipsis
}

// DisplayWidth returns the number of terminal columns s occupies.
// Wide (CJK) runes and emoji count as two columns.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadLeftTo right-aligns s in a field of the given display width.
// Strings already wider than width are returned unchanged.
func PadLeftTo(s string, width int) string {
	w := DisplayWidth(s)
	if w >= width {
		return s
	}
	return runewidth.FillLeft(s, width)
}
