package config

// This file resolves payment gateway credentials.  Unlike the server-level
// Config, credentials are looked up on every use: the hosting model does not
// guarantee process reuse, keys can be rotated without a deploy, and a
// missing credential must fail the request that needs it rather than the
// whole process.  Resolution order is mode-specific variable first, then the
// generic fallback.  There is no silent default.

import (
	"os"
	"strings"
)

// Gateway modes.  Anything other than "live" resolves to test.
const (
	ModeTest = "test"
	ModeLive = "live"
)

// Credentials is a resolved gateway key pair for one mode.
type Credentials struct {
	Mode      string
	KeyID     string
	KeySecret string
}

// ConfigurationError reports an unresolved credential.  It names the
// mode-specific environment variable that was tried so the fix is obvious
// from the error alone.  Handlers translate it into an HTTP 500.
type ConfigurationError struct {
	Variable string
}

func (e *ConfigurationError) Error() string {
	return "gateway credential not configured: " + e.Variable
}

// GatewayMode returns the configured gateway mode from RAZORPAY_MODE.
// Unset or unrecognised values fall back to test so a misconfigured box can
// never accidentally charge real money.
func GatewayMode() string {
	if strings.EqualFold(os.Getenv("RAZORPAY_MODE"), ModeLive) {
		return ModeLive
	}
	return ModeTest
}

// ResolveGatewayCredentials resolves the key id and secret for the current
// mode.  RAZORPAY_TEST_KEY_ID / RAZORPAY_LIVE_KEY_ID take precedence over
// the generic RAZORPAY_KEY_ID, and likewise for the secret.  An unresolved
// value returns a *ConfigurationError; callers must not proceed.
func ResolveGatewayCredentials() (Credentials, error) {
	mode := GatewayMode()
	prefix := "RAZORPAY_TEST_"
	if mode == ModeLive {
		prefix = "RAZORPAY_LIVE_"
	}
	keyID := firstEnv(prefix+"KEY_ID", "RAZORPAY_KEY_ID")
	if keyID == "" {
		return Credentials{}, &ConfigurationError{Variable: prefix + "KEY_ID"}
	}
	keySecret := firstEnv(prefix+"KEY_SECRET", "RAZORPAY_KEY_SECRET")
	if keySecret == "" {
		return Credentials{}, &ConfigurationError{Variable: prefix + "KEY_SECRET"}
	}
	return Credentials{Mode: mode, KeyID: keyID, KeySecret: keySecret}, nil
}

// ResolveWebhookSecret returns the shared webhook signing secret, or the
// empty string when none is configured.  An empty secret switches the
// webhook receiver into its documented relaxed mode where signatures are
// not checked; the receiver logs that fact on every request.
func ResolveWebhookSecret() string {
	return os.Getenv("RAZORPAY_WEBHOOK_SECRET")
}

// firstEnv returns the first non-empty value among the given variables.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
