//services/billing-service/internal/config/config.billingService.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/shared/config"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Policy is the tunable business policy of the billing service, read from YAML.
type Policy struct {
	InvoiceNumberPrefix   string        `yaml:"invoice_number_prefix"`
	MaxNumberAttempts     int           `yaml:"max_number_attempts"`
	CascadeConcurrency    int           `yaml:"cascade_concurrency"`
	ReminderSweepSchedule string        `yaml:"reminder_sweep_schedule"`
	ReminderSweepWorkers  int           `yaml:"reminder_sweep_workers"`
	ReminderItemTimeout   time.Duration `yaml:"reminder_item_timeout"`
	ReminderQueue         string        `yaml:"reminder_queue"`
	// SubscriptionCost is the monthly price used for ROI when a request does not pass one.
	SubscriptionCost string `yaml:"subscription_cost"`
}

func DefaultPolicy() Policy {
	return Policy{
		InvoiceNumberPrefix:   "FLT",
		MaxNumberAttempts:     5,
		CascadeConcurrency:    4,
		ReminderSweepSchedule: "@every 15m",
		ReminderSweepWorkers:  4,
		ReminderItemTimeout:   10 * time.Second,
		ReminderQueue:         "invoice_reminders",
		SubscriptionCost:      "0",
	}
}

// LoadPolicy reads the YAML policy at path over the defaults. A missing file
// leaves the defaults in place.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &p); err != nil {
				return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
			}
		}
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	if p.InvoiceNumberPrefix == "" {
		return errors.New("policy: invoice_number_prefix is required")
	}
	if p.MaxNumberAttempts < 1 {
		return errors.New("policy: max_number_attempts must be at least 1")
	}
	if p.CascadeConcurrency < 1 {
		return errors.New("policy: cascade_concurrency must be at least 1")
	}
	if p.ReminderSweepWorkers < 1 {
		return errors.New("policy: reminder_sweep_workers must be at least 1")
	}
	if p.ReminderItemTimeout <= 0 {
		return errors.New("policy: reminder_item_timeout must be positive")
	}
	if p.ReminderQueue == "" {
		return errors.New("policy: reminder_queue is required")
	}
	if _, err := cron.ParseStandard(p.ReminderSweepSchedule); err != nil {
		return fmt.Errorf("policy: reminder_sweep_schedule: %w", err)
	}
	cost, err := decimal.NewFromString(p.SubscriptionCost)
	if err != nil || cost.IsNegative() {
		return fmt.Errorf("policy: subscription_cost %q is not a non-negative amount", p.SubscriptionCost)
	}
	return nil
}

// Cost returns SubscriptionCost as a decimal. Call after Validate.
func (p Policy) Cost() decimal.Decimal {
	return decimal.RequireFromString(p.SubscriptionCost)
}

type BillingConfig struct {
	CommonConfig *config.CommonConfig
	HTTPAddr     string
	Env          string
	Policy       Policy
}

// LoadConfig loads the billing service configuration from the environment and the policy file.
func LoadConfig() (*BillingConfig, error) {
	common := config.LoadCommonConfig()
	policy, err := LoadPolicy(getEnv("POLICY_FILE", "policy.yaml"))
	if err != nil {
		return nil, err
	}
	return &BillingConfig{
		CommonConfig: common,
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		Env:          getEnv("APP_ENV", "development"),
		Policy:       policy,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
