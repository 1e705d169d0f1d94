package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelPrice is one row of the pricing table, in USD per 1000 tokens
type ModelPrice struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

type pricingFile struct {
	Default string       `yaml:"default"`
	Models  []ModelPrice `yaml:"models"`
}

// PricingCatalog prices prompt and completion tokens per model
type PricingCatalog struct {
	defaultModel string
	models       []ModelPrice
}

// DefaultPricingCatalog returns the built-in pricing table
func DefaultPricingCatalog() *PricingCatalog {
	return &PricingCatalog{
		defaultModel: "gpt-4-turbo-preview",
		models: []ModelPrice{
			{ID: "gpt-4-turbo-preview", Name: "GPT-4 Turbo", InputPer1K: 0.01, OutputPer1K: 0.03},
			{ID: "gpt-4", Name: "GPT-4", InputPer1K: 0.03, OutputPer1K: 0.06},
			{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", InputPer1K: 0.0015, OutputPer1K: 0.002},
		},
	}
}

// NewPricingCatalog loads a pricing table from a YAML file
func NewPricingCatalog(configPath string) (*PricingCatalog, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var file pricingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	if len(file.Models) == 0 {
		return nil, fmt.Errorf("pricing catalog %s has no models", configPath)
	}

	catalog := &PricingCatalog{defaultModel: file.Default, models: file.Models}
	if catalog.defaultModel == "" {
		catalog.defaultModel = file.Models[0].ID
	}
	if _, ok := catalog.find(catalog.defaultModel); !ok {
		return nil, fmt.Errorf("default model %q is not priced in %s", catalog.defaultModel, configPath)
	}

	return catalog, nil
}

// GetModels returns every priced model
func (pc *PricingCatalog) GetModels() []ModelPrice {
	return pc.models
}

// DefaultModel returns the id of the fallback row
func (pc *PricingCatalog) DefaultModel() string {
	return pc.defaultModel
}

// SetDefaultModel changes the fallback row; the model must already be priced
func (pc *PricingCatalog) SetDefaultModel(modelID string) error {
	if _, ok := pc.find(modelID); !ok {
		return fmt.Errorf("default model %q is not priced", modelID)
	}
	pc.defaultModel = modelID
	return nil
}

// Rate returns the price row for a model, or the default row when the model is unknown
func (pc *PricingCatalog) Rate(modelID string) ModelPrice {
	if price, ok := pc.find(modelID); ok {
		return price
	}
	price, _ := pc.find(pc.defaultModel)
	return price
}

// Cost computes the USD cost of an exchange
func (pc *PricingCatalog) Cost(modelID string, promptTokens, completionTokens int) float64 {
	rate := pc.Rate(modelID)
	inputCost := float64(promptTokens) / 1000 * rate.InputPer1K
	outputCost := float64(completionTokens) / 1000 * rate.OutputPer1K
	return inputCost + outputCost
}

func (pc *PricingCatalog) find(modelID string) (ModelPrice, bool) {
	for _, model := range pc.models {
		if model.ID == modelID {
			return model, true
		}
	}
	return ModelPrice{}, false
}
