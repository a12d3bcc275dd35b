package assistant

// ModelConfig defines configuration for a Gemini model.
type ModelConfig struct {
	Name        string
	Temperature float32
	TopP        float32
	TopK        int32
}

// AvailableModels maps the short names accepted in config to Gemini models.
var AvailableModels = map[string]ModelConfig{
	"flash": {
		Name:        "gemini-flash-latest",
		Temperature: 0.4,
		TopP:        0.95,
		TopK:        40,
	},
	"pro": {
		Name:        "gemini-pro-latest",
		Temperature: 0.4,
		TopP:        0.95,
		TopK:        40,
	},
	"flash-2": {
		Name:        "gemini-2.0-flash",
		Temperature: 0.4,
		TopP:        0.95,
		TopK:        40,
	},
}

const defaultModel = "flash"

// ResolveModel returns the config for key, falling back to flash.
func ResolveModel(key string) ModelConfig {
	if cfg, ok := AvailableModels[key]; ok {
		return cfg
	}
	return AvailableModels[defaultModel]
}
