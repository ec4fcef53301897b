package ai

import (
	"strings"
	"testing"
)

func TestTranscriptPrompt(t *testing.T) {
	prompt := TranscriptPrompt(
		[]string{"Pizza", "Soda (1/2)", "Soda (2/2)"},
		[]string{"Alice", "Bob"},
	)

	for _, want := range []string{"Pizza", "Soda (1/2)", "Soda (2/2)", "Alice", "Bob", `"me"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}

func TestTranscriptPromptWithoutMembers(t *testing.T) {
	prompt := TranscriptPrompt([]string{"Pizza"}, nil)
	if strings.Contains(prompt, "participant names") {
		t.Error("Prompt should not mention group members when there are none")
	}
}

func TestDecodeParticipants(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantCount int
		wantErr   bool
	}{
		{
			name:      "valid claims",
			data:      `{"participants":[{"name":"alice","items":["Pizza"]},{"name":"me","items":["Soda (1/2)"]}]}`,
			wantCount: 2,
		},
		{
			name:      "blank names dropped",
			data:      `{"participants":[{"name":"  ","items":["Pizza"]},{"name":"bob","items":[]}]}`,
			wantCount: 1,
		},
		{
			name:      "empty object",
			data:      `{}`,
			wantCount: 0,
		},
		{
			name:    "not json",
			data:    `sure, here are the participants:`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeParticipants([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected decode error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeParticipants failed: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Errorf("Expected %d participants, got %d", tt.wantCount, len(got))
			}
		})
	}
}
