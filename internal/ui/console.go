// Package ui provides colorized console output for server startup and
// shutdown. Structured logging stays on slog; this is operator-facing polish.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed, color.Bold)
	infoText    = color.New(color.FgCyan)
	accentText  = color.New(color.FgMagenta, color.Bold)
	mutedText   = color.New(color.FgHiBlack)
)

// PrintBanner displays the startup banner.
func PrintBanner() {
	fmt.Println()
	accentText.Println("  ╔══════════════════════════════════════════╗")
	accentText.Print("  ║   ")
	infoText.Print("GEMINI-WEB2API")
	mutedText.Print("  browser session bridge")
	accentText.Println("   ║")
	accentText.Println("  ╚══════════════════════════════════════════╝")
	fmt.Println()
}

// PrintStartupSummary lists the bound address, endpoints and backend state.
func PrintStartupSummary(addr, backendStatus string, modelCount int) {
	infoText.Printf("  Listening on http://%s\n", addr)
	mutedText.Println("   • POST /v1/chat/completions  chat completion (OpenAI-compatible)")
	mutedText.Println("   • GET  /v1/models            model catalog")
	mutedText.Println("   • GET  /                     liveness")
	fmt.Println()

	switch backendStatus {
	case "ready":
		successText.Print("  Backend session: ready")
		mutedText.Printf("  (%d models)\n", modelCount)
	case "uninitialized":
		warningText.Println("  Backend session: uninitialized. Run with --fetch-cookies or fill .env")
	default:
		errorText.Println("  Backend session: failed. Cookies are likely expired")
	}
	fmt.Println()
}

// PrintShutdown announces a graceful stop.
func PrintShutdown() {
	fmt.Println()
	infoText.Println("  Shutting down gracefully...")
}

// PrintStopped announces the final exit.
func PrintStopped() {
	successText.Println("  Server stopped. Goodbye!")
}
