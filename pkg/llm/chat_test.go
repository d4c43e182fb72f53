package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/tome/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:          "testmodel",
		Temperature:    0.5,
		MaxTokens:      1000,
		SystemTemplate: "Test system template",
		BaseURL:        "http://localhost:1234",
	}
	engine, err := llm.NewWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfig_InvalidTemperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
	}{
		{"zero temperature", 0},
		{"negative temperature", -0.3},
		{"above one", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := llm.NewWithConfig(llm.ChatConfig{
				Model:       "testmodel",
				Temperature: tt.temperature,
			})
			assert.Error(t, err)
		})
	}
}

func TestNewWithConfig_NegativeMaxTokens(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   -1,
	})
	assert.Error(t, err)
}
