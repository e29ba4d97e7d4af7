package common

import (
	"fmt"
	"strings"

	"resale-escrow-go/internal/models"
)

// DefaultWidth is the separator width of console reports
const DefaultWidth = 80

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// PrintSettlementSummary renders one settlement run as a boxed report
func PrintSettlementSummary(summary *models.SettlementSummary) {
	fmt.Println("\n┌─ Settlement run")
	fmt.Printf("│  %-18s: %d\n", "Auto-released", summary.AutoReleased)
	fmt.Printf("│  %-18s: %d\n", "Expired listings", summary.ExpiredListings)
	fmt.Printf("│  %-18s: %d\n", "Reminders sent", summary.RemindersSent)
	fmt.Printf("│  %-18s: %d\n", "Disputes created", summary.DisputesCreated)
	PrintBoxSeparator(DefaultWidth - 2)

	if len(summary.Errors) == 0 {
		fmt.Printf("%s no item errors\n", BoxPrefix(true))
		return
	}
	for i, e := range summary.Errors {
		fmt.Printf("%s %-14s %-38s %s\n", BoxPrefix(i == len(summary.Errors)-1), e.Type, orDash(e.OrderId), e.Error)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
