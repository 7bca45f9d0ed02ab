package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printHeader(title string) {
	_, _ = accent.Println(title)
}

func printSuccess(format string, args ...any) {
	_, _ = success.Printf(format+"\n", args...)
}

func printWarn(format string, args ...any) {
	_, _ = warn.Printf(format+"\n", args...)
}

func printFailure(format string, args ...any) {
	_, _ = danger.Printf(format+"\n", args...)
}

func printKV(key string, value any) {
	_, _ = neutral.Printf("  %-14s", key)
	fmt.Println(value)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
