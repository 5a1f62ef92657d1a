package config

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// ValidationError contains details about configuration validation failures
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors
func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateSerial(cfg.Serial)...)

	if cfg.Logging.BasePath != "" {
		if info, err := os.Stat(cfg.Logging.BasePath); err != nil || !info.IsDir() {
			errs = append(errs, ValidationError{
				Field:   "logging.base_path",
				Message: fmt.Sprintf("directory does not exist: %s", cfg.Logging.BasePath),
			})
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !containsString(validLevels, strings.ToLower(cfg.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level: %s", cfg.Logging.Level),
		})
	}

	if cfg.Monitoring.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Monitoring.Listen); err != nil {
			errs = append(errs, ValidationError{
				Field:   "monitoring.listen",
				Message: fmt.Sprintf("invalid listen address: %s", cfg.Monitoring.Listen),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateSerial(serial SerialConfig) ValidationErrors {
	var errs ValidationErrors

	validBaudRates := []int{300, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}
	if !containsInt(validBaudRates, serial.BaudRate) {
		errs = append(errs, ValidationError{
			Field:   "serial.baud_rate",
			Message: fmt.Sprintf("invalid baud rate: %d", serial.BaudRate),
		})
	}

	if serial.DataBits != 8 {
		errs = append(errs, ValidationError{
			Field:   "serial.data_bits",
			Message: fmt.Sprintf("must be 8, got %d", serial.DataBits),
		})
	}

	if serial.StopBits != 1 && serial.StopBits != 2 {
		errs = append(errs, ValidationError{
			Field:   "serial.stop_bits",
			Message: fmt.Sprintf("must be 1 or 2, got %d", serial.StopBits),
		})
	}

	validParities := []string{"none", "even", "odd"}
	if !containsString(validParities, strings.ToLower(serial.Parity)) {
		errs = append(errs, ValidationError{
			Field:   "serial.parity",
			Message: fmt.Sprintf("invalid parity: %s (must be 'none', 'even' or 'odd')", serial.Parity),
		})
	}

	if serial.ReadTimeoutMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "serial.read_timeout_ms",
			Message: "must be greater than 0",
		})
	}

	if serial.WriteTimeoutMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "serial.write_timeout_ms",
			Message: "must be greater than 0",
		})
	}

	return errs
}

func containsInt(values []int, value int) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
