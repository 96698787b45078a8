package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Amber accent for the cart branding
const cartAmber = "#FFB347"

// CARTWRIGHT banner (filled block style)
var bannerArt = []string{
	" ██████╗ █████╗ ██████╗ ████████╗██╗    ██╗██████╗ ██╗ ██████╗ ██╗  ██╗████████╗",
	"██╔════╝██╔══██╗██╔══██╗╚══██╔══╝██║    ██║██╔══██╗██║██╔════╝ ██║  ██║╚══██╔══╝",
	"██║     ███████║██████╔╝   ██║   ██║ █╗ ██║██████╔╝██║██║  ███╗███████║   ██║   ",
	"██║     ██╔══██║██╔══██╗   ██║   ██║███╗██║██╔══██╗██║██║   ██║██╔══██║   ██║   ",
	"╚██████╗██║  ██║██║  ██║   ██║   ╚███╔███╔╝██║  ██║██║╚██████╔╝██║  ██║   ██║   ",
	" ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝    ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(cartAmber)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the styled ASCII art banner.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range bannerArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips is displayed under the banner.
var welcomeTips = []string{
	"Your shopping assistant:",
	"  • Browse the catalog: \"show me everything under $50\"",
	"  • Compare products: \"compare the two backpacks\"",
	"  • Manage your cart: \"add the t-shirt\", \"what's in my cart?\"",
	"  • Use /help for commands, Ctrl+C to cancel, Ctrl+D to exit",
}

// RenderWelcomeTips returns the styled getting-started tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
