package llm

import (
	"reflect"
	"testing"
)

func TestExtractList(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "plain list literal",
			response: `["requests", "numpy"]`,
			want:     []string{"requests", "numpy"},
		},
		{
			name:     "list embedded in prose",
			response: "The code needs these packages:\n['pandas', 'matplotlib']\nInstall them with pip.",
			want:     []string{"pandas", "matplotlib"},
		},
		{
			name:     "first list wins",
			response: `["flask"] and also ["django"]`,
			want:     []string{"flask"},
		},
		{
			name:     "multiline list",
			response: "[\n  \"requests\",\n  \"beautifulsoup4\"\n]",
			want:     []string{"requests", "beautifulsoup4"},
		},
		{
			name:     "no list at all",
			response: "This code has no external dependencies.",
			want:     nil,
		},
		{
			name:     "empty list",
			response: "[]",
			want:     nil,
		},
		{
			name:     "brackets without quoted items",
			response: "[1, 2, 3]",
			want:     nil,
		},
		{
			name:     "empty response",
			response: "",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractList(tt.response)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractList(%q) = %v, want %v", tt.response, got, tt.want)
			}
		})
	}
}

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "python fence",
			response: "Here is the fix:\n```python\nprint(1)\n```\nThat should work.",
			want:     "print(1)",
		},
		{
			name:     "bare fence",
			response: "```\nimport os\nprint(os.getcwd())\n```",
			want:     "import os\nprint(os.getcwd())",
		},
		{
			name:     "first block only",
			response: "```python\nprint('a')\n```\ntext\n```python\nprint('b')\n```",
			want:     "print('a')",
		},
		{
			name:     "no fence",
			response: "print(1)",
			want:     "",
		},
		{
			name:     "unterminated fence keeps collected lines",
			response: "```python\nprint(1)",
			want:     "print(1)",
		},
		{
			name:     "indentation preserved",
			response: "```python\ndef f():\n    return 1\n```",
			want:     "def f():\n    return 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCodeBlock(tt.response); got != tt.want {
				t.Errorf("ExtractCodeBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "json fence",
			response: "```json\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
		{
			name:     "bare fence",
			response: "```\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
		{
			name:     "no fence",
			response: "  {\"a\": 1}\n",
			want:     `{"a": 1}`,
		},
		{
			name:     "fence with prose around it",
			response: "Sure, here you go:\n```json\n{\"a\": 1}\n```\nLet me know!",
			want:     `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.response); got != tt.want {
				t.Errorf("StripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}
