// Package config holds the shell's YAML configuration.
package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const ConfigurationName = "config.yaml"

type Configuration struct {
	// Prompt is printed before each interactive read.
	Prompt string `json:"prompt" validate:"required"`

	// HistoryFile stores interactive history; empty disables persistence.
	HistoryFile string `json:"history_file"`

	// Path overrides the command search path; empty keeps the inherited
	// PATH.
	Path string `json:"path"`

	// ColorOutput enables colored prompts and notifications when the
	// output is a terminal.
	ColorOutput bool `json:"color_output"`

	// SubstMaxBytes caps captured command-substitution output.
	SubstMaxBytes int `json:"subst_max_bytes" validate:"gte=0"`

	// LogFile receives the JSON-lines activity log; empty disables it.
	LogFile string `json:"log_file"`
}

// Default returns the configuration used when no file is present.
func Default() *Configuration {
	return &Configuration{
		Prompt:        "$ ",
		HistoryFile:   "",
		ColorOutput:   true,
		SubstMaxBytes: 10 << 20,
	}
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}
