package detect

import "testing"

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{
			name:   "no labels",
			labels: []string{},
			want:   "I could not detect any objects.",
		},
		{
			name:   "nil labels",
			labels: nil,
			want:   "I could not detect any objects.",
		},
		{
			name:   "single label",
			labels: []string{"dog"},
			want:   "I see a dog.",
		},
		{
			name:   "two labels",
			labels: []string{"dog", "cat"},
			want:   "I see dog, and a cat.",
		},
		{
			name:   "three labels",
			labels: []string{"person", "chair", "laptop"},
			want:   "I see person, chair, and a laptop.",
		},
		{
			name:   "multi-word label",
			labels: []string{"traffic light"},
			want:   "I see a traffic light.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.labels)
			if got != tt.want {
				t.Errorf("Summarize(%v) = %q, want %q", tt.labels, got, tt.want)
			}
		})
	}
}
