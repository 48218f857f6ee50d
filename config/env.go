package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const AppEnvBase = "COMPBOT_"

// ApplyEnv overrides values from COMPBOT_ environment variables
func (c *Config) ApplyEnv() {
	c.LogLevel = GetStringEnv("LOG_LEVEL", c.LogLevel)
	c.Backend = GetStringEnv("BACKEND", c.Backend)
	c.Headless = GetBoolEnv("HEADLESS", c.Headless)
	c.Tick.Duration = GetDurationEnv("TICK", c.Tick.Duration)
	c.DebugTimeout.Duration = GetDurationEnv("DEBUG_TIMEOUT", c.DebugTimeout.Duration)
	c.SlowMultiplier = GetFloatEnv("SLOW_MULTIPLIER", c.SlowMultiplier)

	c.Serial.Port = GetStringEnv("SERIAL_PORT", c.Serial.Port)
	c.Serial.Baud = GetIntEnv("SERIAL_BAUD", c.Serial.Baud)
	c.Gamepad.Port = GetStringEnv("GAMEPAD_PORT", c.Gamepad.Port)
	c.Gamepad.Baud = GetIntEnv("GAMEPAD_BAUD", c.Gamepad.Baud)

	c.PCA9685.I2CDevice = GetStringEnv("I2CDEVICE", c.PCA9685.I2CDevice)
	c.PCA9685.Address = GetIntEnv("I2CADDRESS", c.PCA9685.Address)

	c.Intake.Voltage = GetIntEnv("INTAKE_VOLTAGE", c.Intake.Voltage)
	c.Intake.ReverseMode = GetStringEnv("INTAKE_REVERSE_MODE", c.Intake.ReverseMode)
	c.Lift.Voltage = GetIntEnv("LIFT_VOLTAGE", c.Lift.Voltage)
	c.Lift.ReverseMode = GetStringEnv("LIFT_REVERSE_MODE", c.Lift.ReverseMode)

	c.GPIO.Enable = GetIntEnv("GPIO_ENABLE", c.GPIO.Enable)
	c.GPIO.Autonomous = GetIntEnv("GPIO_AUTONOMOUS", c.GPIO.Autonomous)

	c.MatchLog.Addr = GetStringEnv("MATCHLOG_ADDR", c.MatchLog.Addr)
}

func GetIntEnv(env string, defaultValue int) int {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}

	value, err := strconv.ParseInt(strings.TrimSpace(envValue), 0, 32)
	if err != nil {
		log.Warnf("%s not parsed: %v", env, err)
		return defaultValue
	}
	return int(value)
}

func GetBoolEnv(env string, defaultValue bool) bool {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}

	value, err := strconv.ParseBool(strings.TrimSpace(envValue))
	if err != nil {
		log.Warnf("%s not parsed: %v", env, err)
		return defaultValue
	}
	return value
}

// GetStringEnv keeps the value's case since it is used for device paths and URLs
func GetStringEnv(env string, defaultValue string) string {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}
	return strings.TrimSpace(envValue)
}

func GetFloatEnv(env string, defaultValue float64) float64 {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(envValue), 64)
	if err != nil {
		log.Warnf("%s not parsed: %v", env, err)
		return defaultValue
	}
	return value
}

func GetDurationEnv(env string, defaultValue time.Duration) time.Duration {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}

	value, err := time.ParseDuration(strings.TrimSpace(envValue))
	if err != nil {
		log.Warnf("%s not parsed: %v", env, err)
		return defaultValue
	}
	return value
}
