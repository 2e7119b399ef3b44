package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFraudConfig() FraudConfig {
	return FraudConfig{
		LocationWeight:    0.25,
		DeviceWeight:      0.2,
		TimeWeight:        0.2,
		BehaviorWeight:    0.2,
		PhotoWeight:       0.15,
		MediumThreshold:   0.4,
		HighThreshold:     0.65,
		CriticalThreshold: 0.8,
		DeviceLimit:       3,
		MaxAttemptHistory: 200,
		RetentionDays:     30,
	}
}

func TestFraudConfigValidate(t *testing.T) {
	cfg := validFraudConfig()
	require.NoError(t, cfg.Validate())
}

func TestFraudConfigValidateRejectsNegativeWeight(t *testing.T) {
	cfg := validFraudConfig()
	cfg.DeviceWeight = -0.1
	assert.Error(t, cfg.Validate())
}

func TestFraudConfigValidateRejectsAllZeroWeights(t *testing.T) {
	cfg := validFraudConfig()
	cfg.LocationWeight = 0
	cfg.DeviceWeight = 0
	cfg.TimeWeight = 0
	cfg.BehaviorWeight = 0
	cfg.PhotoWeight = 0
	assert.Error(t, cfg.Validate())
}

func TestFraudConfigValidateRejectsUnorderedThresholds(t *testing.T) {
	cfg := validFraudConfig()
	cfg.HighThreshold = 0.9
	assert.Error(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("checkin-fraud")
	require.NoError(t, err)

	assert.Equal(t, "checkin-fraud", cfg.Server.ServiceName)
	assert.Equal(t, 3, cfg.Fraud.DeviceLimit)
	assert.InDelta(t, 1.0, cfg.Fraud.LocationWeight+cfg.Fraud.DeviceWeight+
		cfg.Fraud.TimeWeight+cfg.Fraud.BehaviorWeight+cfg.Fraud.PhotoWeight, 1e-9)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
}
