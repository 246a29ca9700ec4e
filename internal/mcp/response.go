package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse creates a standardized error response for MCP tools.
// Tool errors are reported inside the result with IsError set so the
// client model can see them and correct the call.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	return createSmartErrorResponse(operation, err, nil)
}

// createSmartErrorResponse creates an error response with suggestions for
// the failed operation
func createSmartErrorResponse(operation string, err error, context map[string]interface{}) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if suggestions := generateErrorSuggestions(operation, err); len(suggestions) > 0 {
		errorData["suggestions"] = suggestions
	}
	if help := getOperationHelp(operation); help != "" {
		errorData["help"] = help
	}
	if len(context) > 0 {
		errorData["context"] = context
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// generateErrorSuggestions suggests fixes for common argument errors
func generateErrorSuggestions(operation string, err error) []string {
	var suggestions []string
	msg := err.Error()

	switch operation {
	case "reduce":
		switch {
		case strings.Contains(msg, "one of source or path"):
			suggestions = append(suggestions, `Pass C# text as "source" or a file under the project root as "path"`)
		case strings.Contains(msg, "invalid span"):
			suggestions = append(suggestions, `Spans are character offsets: "120:35" (start:length) or "120-155" (start-end)`)
		case strings.Contains(msg, "invalid line range"), strings.Contains(msg, "past the end"):
			suggestions = append(suggestions, `Lines are 1-based and inclusive: "12-20" or "12"`)
		case strings.Contains(msg, "unknown reducer"):
			suggestions = append(suggestions, "Call the reducers tool to list the available names")
		case strings.Contains(msg, "outside the project"):
			suggestions = append(suggestions, "Use a path relative to the project root")
		}
	}
	return suggestions
}

// getOperationHelp provides helpful information about each operation
func getOperationHelp(operation string) string {
	helpMap := map[string]string{
		"reduce":   "Simplify C# source while preserving meaning: shorten qualified names, use keywords, drop redundant parentheses, this. and @ escapes, and remove unused usings.",
		"reducers": "List the reducers in the order they run and whether the current options enable them.",
		"info":     "Describe the server, its version and its tools.",
	}
	return helpMap[operation]
}
