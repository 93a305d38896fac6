// Copyright 2021-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package colors

import (
	"fmt"
	"regexp"
)

var Red = "\033[31;1m"
var Yellow = "\033[33;1m"
var Mint = "\033[38;5;48;1m"
var Grey = "\033[90m"

var Clear = "\033[0;0m"

func PrintMint(args ...interface{}) {
	fmt.Print(Mint)
	fmt.Print(args...)
	fmt.Println(Clear)
}

func PrintYellow(args ...interface{}) {
	fmt.Print(Yellow)
	fmt.Print(args...)
	fmt.Println(Clear)
}

func Uncolor(text string) string {
	uncolor := regexp.MustCompile("\x1b\\[([0-9]+;)*[0-9]+m")
	unwhite := regexp.MustCompile(`\s+`)

	text = uncolor.ReplaceAllString(text, "")
	return unwhite.ReplaceAllString(text, " ")
}
