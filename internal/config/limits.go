package config

const (
	// MaxChatNameLength is the maximum length for conversation names.
	// Fits the TEXT unique index comfortably and keeps list payloads small.
	MaxChatNameLength = 255

	// MaxMessageLength is the maximum length of one user message in characters.
	MaxMessageLength = 100_000

	// DefaultChatName is used by send_message when the request names no chat.
	DefaultChatName = "Default Chat"

	// SystemPrompt is prepended to every completion call; it is never persisted.
	SystemPrompt = "Use English to reply."
)

// Generation defaults for the completion API
const (
	DefaultModel       = "xdeepseekv3"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 16384

	// DefaultOverloadThreshold is the CPU or memory utilization percentage
	// above which replies are buffered instead of streamed.
	DefaultOverloadThreshold = 80.0
)
