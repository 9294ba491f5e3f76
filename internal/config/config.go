package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
)

// Config holds the server-level configuration values that must be present
// before the HTTP server starts.  Gateway credentials are deliberately not
// part of this struct: they are resolved per invocation by the credential
// resolver so that a key rotated in the environment takes effect without a
// restart and a missing key fails the request that needs it, not the whole
// process.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	BookingPageURL string // base URL of the booking front end, used by the callback redirector
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),          // environment (dev/test/prod)
		Port:           must("APP_PORT"),         // port to bind the HTTP server
		DBUser:         must("DB_USER"),          // database user
		DBPass:         os.Getenv("DB_PASS"),     // database password (empty allowed)
		DBHost:         must("DB_HOST"),          // database host
		DBPort:         must("DB_PORT"),          // database port
		DBName:         must("DB_NAME"),          // database name
		BookingPageURL: must("BOOKING_PAGE_URL"), // where /callback sends the browser back to
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
