package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	SystemPromptChanged bool
	NewSystemPrompt     string

	GreetingChanged bool
	NewGreeting     string

	RecipientsChanged bool
	NewRecipients     []string

	FeeChanged bool
	NewFee     int
}

// HasChanges reports whether any tracked field differs.
func (d ConfigDiff) HasChanges() bool {
	return d.LogLevelChanged || d.SystemPromptChanged || d.GreetingChanged ||
		d.RecipientsChanged || d.FeeChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; provider
// credentials and endpoints require a restart and are ignored here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Assistant.SystemPrompt != new.Assistant.SystemPrompt {
		d.SystemPromptChanged = true
		d.NewSystemPrompt = new.Assistant.SystemPrompt
	}

	if old.Assistant.Greeting != new.Assistant.Greeting {
		d.GreetingChanged = true
		d.NewGreeting = new.Assistant.Greeting
	}

	if !slices.Equal(old.Enrollment.Recipients, new.Enrollment.Recipients) {
		d.RecipientsChanged = true
		d.NewRecipients = slices.Clone(new.Enrollment.Recipients)
	}

	if old.Enrollment.ApplicationFee != new.Enrollment.ApplicationFee {
		d.FeeChanged = true
		d.NewFee = new.Enrollment.ApplicationFee
	}

	return d
}
