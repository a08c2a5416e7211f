package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/pulse/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	}
	engine, err := llm.NewWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigDefaults(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{})
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigRejectsBadTemperature(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 1.5})
	assert.Error(t, err)
}

func TestNewWithConfigRejectsNegativeMaxTokens(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{MaxTokens: -1})
	assert.Error(t, err)
}
