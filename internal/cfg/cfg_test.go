package cfg

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func wantErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got <nil>", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("error %q does not contain %q", err.Error(), sub)
	}
}

// newTestConfig registers flags on a fresh FlagSet and parses args
func newTestConfig(t *testing.T, args []string) (*App, *flag.FlagSet) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := &App{}
	Register(fs, c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	return c, fs
}

func TestRegister_Defaults(t *testing.T) {
	c, _ := newTestConfig(t, nil)

	if c.HTTPPort != 3000 || c.AdminPort != 9000 {
		t.Errorf("ports = %d/%d, want 3000/9000", c.HTTPPort, c.AdminPort)
	}
	if c.RateLimit != 10 || c.RateWindow != time.Hour {
		t.Errorf("rate = %d per %s, want 10 per 1h", c.RateLimit, c.RateWindow)
	}
	if c.PromptPrefix != "Create a high-quality, detailed image: " {
		t.Errorf("PromptPrefix = %q", c.PromptPrefix)
	}
	if c.ProviderTimeout != 60*time.Second || c.WriteTimeout != 90*time.Second {
		t.Errorf("timeouts = %s/%s", c.ProviderTimeout, c.WriteTimeout)
	}
	if c.Environment != EnvDevelopment {
		t.Errorf("Environment = %q", c.Environment)
	}
	if c.RedisAddr != "" {
		t.Errorf("RedisAddr should default to in-memory, got %q", c.RedisAddr)
	}
	if err := Validate(*c); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestRegister_CLIOverrides(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-http-port=8081",
		"-rate-limit=3",
		"-rate-window=10m",
		"-environment=production",
		"-redis-addr=redis:6379",
		"-ai-model=custom-model",
	})

	if c.HTTPPort != 8081 {
		t.Errorf("HTTPPort = %d", c.HTTPPort)
	}
	if c.RateLimit != 3 || c.RateWindow != 10*time.Minute {
		t.Errorf("rate = %d per %s", c.RateLimit, c.RateWindow)
	}
	if c.Environment != EnvProduction || c.RedisAddr != "redis:6379" || c.AIModel != "custom-model" {
		t.Errorf("unexpected overrides: %+v", *c)
	}
}

func TestFillFromEnv(t *testing.T) {
	pfx := "TESTCFG_"
	t.Setenv(pfx+"LOG_LEVEL", "debug")
	t.Setenv(pfx+"RATE_LIMIT", "25")
	t.Setenv(pfx+"RATE_WINDOW", "30m")
	t.Setenv(pfx+"ENABLE_PPROF", "false")

	c, fs := newTestConfig(t, nil)
	FillFromEnv(fs, pfx, nil)

	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", c.LogLevel)
	}
	if c.RateLimit != 25 || c.RateWindow != 30*time.Minute {
		t.Errorf("rate = %d per %s", c.RateLimit, c.RateWindow)
	}
	if c.EnablePprof {
		t.Error("EnablePprof should be false from env")
	}
}

func TestFillFromEnv_CLITakesPrecedence(t *testing.T) {
	pfx := "TESTCFG2_"
	t.Setenv(pfx+"HTTP_PORT", "7777")
	t.Setenv(pfx+"LOG_LEVEL", "warn")

	var c App
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs, &c)
	if err := fs.Parse([]string{"-http-port=9090", "-log-level=debug"}); err != nil {
		t.Fatal(err)
	}

	var msgs []string
	FillFromEnv(fs, pfx, func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	})

	if c.HTTPPort != 9090 || c.LogLevel != "debug" {
		t.Errorf("cli values lost: port=%d level=%q", c.HTTPPort, c.LogLevel)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 override messages, got %v", msgs)
	}
	for _, m := range msgs {
		if !strings.Contains(m, "overrides env") {
			t.Errorf("unexpected message %q", m)
		}
	}
}

func TestFillFromEnv_InvalidEnvIgnored(t *testing.T) {
	pfx := "TESTCFG3_"
	t.Setenv(pfx+"RATE_LIMIT", "lots")

	var c App
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs, &c)
	_ = fs.Parse(nil)

	var msgs []string
	FillFromEnv(fs, pfx, func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	})

	if c.RateLimit != 10 {
		t.Errorf("RateLimit = %d, want default 10", c.RateLimit)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "ignoring invalid env") {
		t.Fatalf("messages = %v", msgs)
	}
}

func TestEnvKey(t *testing.T) {
	if got := EnvKey(EnvPrefix, "ai-api-key-ssm-param"); got != "CHARGEN_AI_API_KEY_SSM_PARAM" {
		t.Fatalf("EnvKey = %q", got)
	}
}

func TestFillAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "  from-env  ")

	c := App{}
	FillAPIKey(&c)
	if c.AIAPIKey != "from-env" {
		t.Fatalf("AIAPIKey = %q", c.AIAPIKey)
	}

	c = App{AIAPIKey: "from-flag"}
	FillAPIKey(&c)
	if c.AIAPIKey != "from-flag" {
		t.Fatalf("explicit key replaced: %q", c.AIAPIKey)
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("CHARGEN_TEST_DOTENV=loaded\nCHARGEN_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHARGEN_TEST_PRESET", "process")
	t.Setenv("CHARGEN_TEST_DOTENV", "")
	os.Unsetenv("CHARGEN_TEST_DOTENV")
	t.Cleanup(func() { os.Unsetenv("CHARGEN_TEST_DOTENV") })

	if err := LoadDotenv("", filepath.Join(dir, "missing.env"), p); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := os.Getenv("CHARGEN_TEST_DOTENV"); got != "loaded" {
		t.Errorf("CHARGEN_TEST_DOTENV = %q", got)
	}
	if got := os.Getenv("CHARGEN_TEST_PRESET"); got != "process" {
		t.Errorf("existing env overridden: %q", got)
	}
}

func TestValidate_InvalidCombined(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-http-port=0",
		"-admin-port=70000",
		"-log-level=loud",
		"-environment=staging",
		"-trace-sample=2",
		"-enable-tracing=true",
		"-rate-limit=0",
		"-rate-window=0s",
		"-provider-timeout=2m",
		"-redis-addr=no-port",
	})

	err := Validate(*c)
	for _, sub := range []string{
		"HTTP_PORT",
		"ADMIN_PORT",
		"LOG_LEVEL",
		"ENVIRONMENT",
		"TRACE_SAMPLE",
		"OTLP_ENDPOINT required",
		"RATE_LIMIT",
		"RATE_WINDOW",
		"WRITE_TIMEOUT",
		"REDIS_ADDR",
	} {
		wantErrContains(t, err, sub)
	}
}

func TestValidate_ProductionOrigin(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-environment=production", "-production-origin=not a url"})
	wantErrContains(t, Validate(*c), "PRODUCTION_ORIGIN")

	c, _ = newTestConfig(t, []string{"-environment=production", "-production-origin=https://chars.example.org"})
	if err := Validate(*c); err != nil {
		t.Fatalf("valid production config rejected: %v", err)
	}
}

func TestValidate_SecretSourcesExclusive(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-ai-api-key-ssm-param=/p", "-ai-api-key-kms-ciphertext=AAAA"})
	wantErrContains(t, Validate(*c), "at most one")
}

func TestValidate_Pyroscope(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-enable-pyroscope=true"})
	err := Validate(*c)
	wantErrContains(t, err, "PYRO_SERVER required")
	wantErrContains(t, err, "PYRO_TENANT required")
}
