// Package cfg holds the server configuration: flags with inline defaults,
// environment overrides under a prefix, an optional dotenv file and a
// Validate pass that reports every problem at once.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/keithlinneman/charactergen/internal/log"
)

const (
	EnvPrefix = "CHARGEN_"

	// APIKeyEnv is read when no key was given through flags or prefixed env
	APIKeyEnv = "GOOGLE_AI_API_KEY"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	EnvFile string

	HTTPPort     int
	AdminPort    int
	WriteTimeout time.Duration
	DrainDelay   time.Duration

	Environment      string
	ProductionOrigin string

	EnablePprof     bool
	EnablePyroscope bool
	EnableTracing   bool
	PyroServer      string
	PyroTenantID    string
	OTLPEndpoint    string
	TraceSample     float64

	AIAPIKey              string
	AIAPIKeySSMParam      string
	AIAPIKeyKMSCiphertext string
	AIModel               string
	PromptPrefix          string
	ProviderTimeout       time.Duration
	ProviderRPS           float64
	ProviderBurst         int

	RateLimit      int
	RateWindow     time.Duration
	RateSweep      time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.StringVar(&c.EnvFile, "env-file", ".env", "dotenv file loaded before env overrides (skipped when missing)")

	fs.IntVar(&c.HTTPPort, "http-port", 3000, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", 90*time.Second, "public listener write timeout, must exceed provider-timeout")
	fs.DurationVar(&c.DrainDelay, "drain-delay", 15*time.Second, "time between failing readiness and stopping listeners on shutdown")

	fs.StringVar(&c.Environment, "environment", EnvDevelopment, "development|production")
	fs.StringVar(&c.ProductionOrigin, "production-origin", "https://charactergen.example.com", "CORS origin allowed on /api when environment=production")

	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")

	fs.StringVar(&c.AIAPIKey, "ai-api-key", "", "image provider API key (falls back to "+APIKeyEnv+")")
	fs.StringVar(&c.AIAPIKeySSMParam, "ai-api-key-ssm-param", "", "SSM SecureString parameter holding the provider API key")
	fs.StringVar(&c.AIAPIKeyKMSCiphertext, "ai-api-key-kms-ciphertext", "", "base64 KMS ciphertext of the provider API key")
	fs.StringVar(&c.AIModel, "ai-model", "gemini-2.0-flash-preview-image-generation", "image generation model")
	fs.StringVar(&c.PromptPrefix, "prompt-prefix", "Create a high-quality, detailed image: ", "text prepended to every user prompt")
	fs.DurationVar(&c.ProviderTimeout, "provider-timeout", 60*time.Second, "per-call provider timeout")
	fs.Float64Var(&c.ProviderRPS, "provider-rps", 2, "outbound provider calls per second across all clients")
	fs.IntVar(&c.ProviderBurst, "provider-burst", 4, "outbound provider burst")

	fs.IntVar(&c.RateLimit, "rate-limit", 10, "generations allowed per client per window")
	fs.DurationVar(&c.RateWindow, "rate-window", 60*time.Minute, "rate limit window length")
	fs.DurationVar(&c.RateSweep, "rate-sweep", 5*time.Minute, "how often expired in-memory windows are dropped")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "host:port of a shared Redis for rate limiting (empty = in-memory)")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "Redis database number")
	fs.StringVar(&c.RedisKeyPrefix, "redis-key-prefix", "chargen:rl:", "Redis key prefix for rate limit windows")
}

// LoadDotenv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := EnvKey(prefix, f.Name)
		envVal, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s", f.Name, f.Value.String(), key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s: %v", f.Name, key, err)
			}
		}
	})
}

// EnvKey maps a flag name to its environment variable
func EnvKey(prefix, flagName string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// FillAPIKey falls back to the unprefixed provider key variable
func FillAPIKey(c *App) {
	if c.AIAPIKey == "" {
		c.AIAPIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}
}

// Validate checks that config values are within expected ranges and formats.
// A missing provider key is not an error: the generate endpoint answers
// with a configuration error instead.
func Validate(c App) error {
	var errs []error

	validPort := func(name string, p int) {
		if p < 1 || p > 65535 {
			errs = append(errs, fmt.Errorf("invalid %s %d (must be 1..65535)", name, p))
		}
	}
	validPort("HTTP_PORT", c.HTTPPort)
	validPort("ADMIN_PORT", c.AdminPort)
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL: %w", err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	switch c.Environment {
	case EnvDevelopment:
	case EnvProduction:
		if u, err := url.Parse(c.ProductionOrigin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PRODUCTION_ORIGIN must be an origin URL (got %q)", c.ProductionOrigin))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid ENVIRONMENT %q (must be %s|%s)", c.Environment, EnvDevelopment, EnvProduction))
	}

	if c.DrainDelay < 0 {
		errs = append(errs, fmt.Errorf("DRAIN_DELAY must not be negative (got %s)", c.DrainDelay))
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, errors.New("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, errors.New("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}
	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.AIAPIKeySSMParam != "" && c.AIAPIKeyKMSCiphertext != "" {
		errs = append(errs, errors.New("set at most one of AI_API_KEY_SSM_PARAM and AI_API_KEY_KMS_CIPHERTEXT"))
	}
	if strings.TrimSpace(c.AIModel) == "" {
		errs = append(errs, errors.New("AI_MODEL is required"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must be positive (got %s)", c.ProviderTimeout))
	} else if c.WriteTimeout <= c.ProviderTimeout {
		errs = append(errs, fmt.Errorf("WRITE_TIMEOUT %s must exceed PROVIDER_TIMEOUT %s", c.WriteTimeout, c.ProviderTimeout))
	}
	if c.ProviderRPS <= 0 || c.ProviderBurst < 1 {
		errs = append(errs, fmt.Errorf("PROVIDER_RPS must be > 0 and PROVIDER_BURST >= 1 (got %g, %d)", c.ProviderRPS, c.ProviderBurst))
	}

	if c.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must be >= 1 (got %d)", c.RateLimit))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("RATE_WINDOW must be positive (got %s)", c.RateWindow))
	}
	if c.RedisAddr == "" && c.RateSweep <= 0 {
		errs = append(errs, fmt.Errorf("RATE_SWEEP must be positive (got %s)", c.RateSweep))
	}
	if c.RedisAddr != "" {
		if _, _, err := net.SplitHostPort(c.RedisAddr); err != nil {
			errs = append(errs, fmt.Errorf("REDIS_ADDR must be host:port (got %q): %v", c.RedisAddr, err))
		}
	}

	return errors.Join(errs...)
}
