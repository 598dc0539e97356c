package config_test

import (
	"testing"

	"github.com/openshelf/openshelf-server/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DATABASE", "openshelf")
	t.Setenv("DB_USER", "openshelf")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Expected default port 3000, got %q", cfg.Port)
	}
	if cfg.DBType != "mysql" {
		t.Errorf("Expected default db type mysql, got %q", cfg.DBType)
	}
	if cfg.LoanPeriodDays != 14 || cfg.MaxLoansPerUser != 3 {
		t.Errorf("Expected loan policy 14/3, got %d/%d", cfg.LoanPeriodDays, cfg.MaxLoansPerUser)
	}
	if cfg.PreviewPageCount != 5 {
		t.Errorf("Expected 5 preview pages, got %d", cfg.PreviewPageCount)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LOAN_PERIOD_DAYS", "7")
	t.Setenv("MAX_LOANS_PER_USER", "5")
	t.Setenv("DB_CONNECTION_LIMIT", "not-a-number")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LoanPeriodDays != 7 || cfg.MaxLoansPerUser != 5 {
		t.Errorf("Expected loan policy 7/5, got %d/%d", cfg.LoanPeriodDays, cfg.MaxLoansPerUser)
	}
	// Unparseable ints fall back to the default.
	if cfg.DBConnectionLimit != 5 {
		t.Errorf("Expected default connection limit 5, got %d", cfg.DBConnectionLimit)
	}
}

func TestLoadRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		omit string
	}{
		{"missing database", "DB_DATABASE"},
		{"missing user", "DB_USER"},
		{"missing jwt secret", "JWT_SECRET"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.omit, "")
			if _, err := config.Load(); err == nil {
				t.Errorf("Expected error when %s is missing", tc.omit)
			}
		})
	}
}

func TestLoadSqliteNeedsNoUser(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_DATABASE", "openshelf.db")
	t.Setenv("DB_USER", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := config.Load(); err != nil {
		t.Fatalf("Load failed for sqlite without DB_USER: %v", err)
	}
}

func TestLoadInvalidPolicy(t *testing.T) {
	setRequired(t)
	t.Setenv("LOAN_PERIOD_DAYS", "0")

	if _, err := config.Load(); err == nil {
		t.Error("Expected error for zero loan period")
	}
}
