package skills

import "testing"

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{input: "required", want: LevelRequired},
		{input: " preferred ", want: LevelPreferred},
		{input: "nice", want: LevelNice},
		{input: "Required", wantErr: true},
		{input: "must-have", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseLevel(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseLevel(%q): unexpected error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLevelPriority(t *testing.T) {
	if !(LevelRequired.Priority() < LevelPreferred.Priority() && LevelPreferred.Priority() < LevelNice.Priority()) {
		t.Fatalf("unexpected priority order")
	}
}

func TestTagSet(t *testing.T) {
	set := TagSet([]CanonicalTag{{Tag: "go"}, {Tag: "rust"}, {Tag: "go"}})
	if len(set) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(set))
	}
	if _, ok := set["rust"]; !ok {
		t.Fatalf("expected rust in set")
	}
}
