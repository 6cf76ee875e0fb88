package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/krakend/rag-preprocessor/internal/config"
)

// ValidationResult represents the result of a pipeline configuration validation
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Errors  []ValidationError `json:"errors"`
	Summary string            `json:"summary"`
}

// ValidationError represents a validation error with location
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidatePipelineConfigInput defines input for validate_pipeline_config tool
type ValidatePipelineConfigInput struct {
	Config string `json:"config" jsonschema:"Pipeline configuration as JSON string or file path"`
}

// ValidatePipelineConfigOutput defines output for validate_pipeline_config tool
type ValidatePipelineConfigOutput struct {
	ValidationResult
}

// isFilePath determines if a string is a file path rather than JSON content
func isFilePath(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	// JSON content starts with { or [
	return !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[")
}

// readConfigContent reads configuration from file path or returns JSON string directly
func readConfigContent(cfg string) ([]byte, error) {
	if !isFilePath(cfg) {
		return []byte(cfg), nil
	}

	content, err := os.ReadFile(strings.TrimSpace(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", cfg, err)
	}
	return content, nil
}

// ValidatePipelineConfig checks a configuration document against the pipeline schema
func ValidatePipelineConfig(ctx context.Context, req *mcp.CallToolRequest, input ValidatePipelineConfigInput) (*mcp.CallToolResult, ValidatePipelineConfigOutput, error) {
	result := ValidationResult{Errors: []ValidationError{}}

	content, err := readConfigContent(input.Config)
	if err != nil {
		code := "FILE_READ_ERROR"
		if errors.Is(err, fs.ErrNotExist) {
			code = "FILE_NOT_FOUND"
		}
		result.Errors = append(result.Errors, ValidationError{Path: input.Config, Message: err.Error(), Code: code})
		result.Summary = "Configuration file could not be read"
		return nil, ValidatePipelineConfigOutput{ValidationResult: result}, nil
	}

	problems, err := config.ValidateJSON(content)
	if err != nil {
		result.Errors = append(result.Errors, ValidationError{Path: "$", Message: err.Error(), Code: "INVALID_JSON"})
		result.Summary = "Configuration has JSON syntax errors"
		return nil, ValidatePipelineConfigOutput{ValidationResult: result}, nil
	}

	for _, p := range problems {
		result.Errors = append(result.Errors, ValidationError{Path: p.Path, Message: p.Message, Code: "SCHEMA_VALIDATION_ERROR"})
	}

	result.Valid = len(result.Errors) == 0
	if result.Valid {
		result.Summary = "Configuration is valid"
	} else {
		result.Summary = fmt.Sprintf("Configuration validation failed with %d error(s)", len(result.Errors))
	}

	return nil, ValidatePipelineConfigOutput{ValidationResult: result}, nil
}

// RegisterValidationTools registers the configuration validation tool
func RegisterValidationTools(server *mcp.Server) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_pipeline_config",
			Description: "Validate a preprocessing pipeline configuration (chunk_size, chunk_overlap, tokenizer, cache, log settings) against its JSON Schema. Accepts a JSON string or a file path and returns every violation with its JSON path.",
		},
		ValidatePipelineConfig,
	)
}
