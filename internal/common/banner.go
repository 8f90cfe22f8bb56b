package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner.
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	build := GetBuild()

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("MANDI AGENT")
	b.PrintCenteredText("Mandi Price Discovery and Scraping Agent")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Build", build, 15)
	b.PrintKeyValue("Mode", config.Agent.Mode, 15)
	b.PrintKeyValue("Input", config.Agent.InputMode, 15)
	b.PrintKeyValue("Log", config.Agent.LogMode, 15)
	b.PrintKeyValue("LLM Provider", string(config.LLM.Provider), 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("mode", config.Agent.Mode).
		Str("input", config.Agent.InputMode).
		Str("log", config.Agent.LogMode).
		Str("llm_provider", string(config.LLM.Provider)).
		Bool("headless", config.Browser.Headless).
		Msg("Agent started")

	fmt.Printf("Configuration:\n")
	fmt.Printf("   - Mode: %s\n", config.Agent.Mode)
	fmt.Printf("   - Storage path: %s\n", config.Storage.Badger.Path)

	logFilePath := ""
	if loggerWithPath, ok := interface{}(logger).(interface{ GetLogFilePath() string }); ok {
		logFilePath = loggerWithPath.GetLogFilePath()
		if logFilePath != "" {
			fmt.Printf("   - Log File: %s\n", logFilePath)
		}
	}
	fmt.Printf("\n")

	logger.Info().
		Str("log_file", logFilePath).
		Int("max_pages_per_source", config.Agent.MaxPagesPerSource).
		Int("discovery_timeout_seconds", config.Agent.DiscoveryTimeoutSeconds).
		Msg("Configuration loaded")
}

// PrintShutdownBanner displays the application shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("MANDI AGENT")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("Agent shutting down")
}

// PrintColorizedMessage prints a message with the given color and logs it through Arbor.
func PrintColorizedMessage(color, message string, logger arbor.ILogger) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green and logs it.
func PrintSuccess(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("[ok] %s", message), logger)
	logger.Info().Str("type", "success").Msg(message)
}

// PrintError prints an error message in red and logs it.
func PrintError(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("[error] %s", message), logger)
	logger.Error().Str("type", "error").Msg(message)
}

// PrintWarning prints a warning message in yellow and logs it.
func PrintWarning(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("[warn] %s", message), logger)
	logger.Warn().Str("type", "warning").Msg(message)
}

// PrintInfo prints an info message in cyan and logs it.
func PrintInfo(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("[info] %s", message), logger)
	logger.Info().Str("type", "info").Msg(message)
}
