package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
)

func TestBuildContentsPutsPromptFirst(t *testing.T) {
	contents := buildContents(llm.Request{
		Prompt: "extract",
		Images: []llm.Image{{MimeType: "image/jpeg", Data: []byte{9}}},
	})
	require.Len(t, contents, 1)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "extract", contents[0].Parts[0].Text)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/jpeg", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{9}, contents[0].Parts[1].InlineData.Data)
}

func TestBuildConfig(t *testing.T) {
	c := &Client{cfg: Config{Temperature: 0.2, MaxTokens: 512}}

	cfg := c.buildConfig(llm.Request{System: "sys", JSON: true})
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 1e-6)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Equal(t, int32(512), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "sys", cfg.SystemInstruction.Parts[0].Text)

	cfg = c.buildConfig(llm.Request{Temperature: 0.7})
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-6)
	assert.Empty(t, cfg.ResponseMIMEType)
	assert.Nil(t, cfg.SystemInstruction)
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := NewClient(t.Context(), Config{}, nil)
	require.Error(t, err)
}
