package signal

import "testing"

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Status string `json:"status"`
	}

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "raw json",
			input: `{"status": "approve"}`,
			want:  "approve",
			ok:    true,
		},
		{
			name:  "fenced json block",
			input: "Here is my verdict:\n```json\n{\"status\": \"reject\"}\n```",
			want:  "reject",
			ok:    true,
		},
		{
			name:  "fenced block without language tag",
			input: "```\n{\"status\": \"revise\"}\n```",
			want:  "revise",
			ok:    true,
		},
		{
			name:  "json embedded in prose",
			input: `After careful analysis, {"status": "approve"} is my answer.`,
			want:  "approve",
			ok:    true,
		},
		{
			name:  "surrounding whitespace",
			input: "\n\n  {\"status\": \"approve\"}  \n",
			want:  "approve",
			ok:    true,
		},
		{
			name:  "no json at all",
			input: "I think you should buy.",
			ok:    false,
		},
		{
			name:  "truncated json",
			input: `{"status": "appr`,
			ok:    false,
		},
		{
			name:  "empty response",
			input: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			ok := extractJSON(tt.input, &p)
			if ok != tt.ok {
				t.Fatalf("extractJSON() ok = %v, want %v", ok, tt.ok)
			}
			if ok && p.Status != tt.want {
				t.Errorf("status = %q, want %q", p.Status, tt.want)
			}
		})
	}
}
