package scheduler

import "testing"

func TestResult_Ratio(t *testing.T) {
	tests := []struct {
		name  string
		items map[string]bool
		want  float64
	}{
		{"empty", nil, 0},
		{"all true", map[string]bool{"a": true, "b": true}, 1},
		{"half", map[string]bool{"a": true, "b": false}, 0.5},
		{"none", map[string]bool{"a": false}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MapResult(tt.items)
			if got := r.Ratio(); got != tt.want {
				t.Errorf("Ratio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoolResult(t *testing.T) {
	if got := BoolResult(true).Ratio(); got != 1 {
		t.Errorf("BoolResult(true).Ratio() = %v, want 1", got)
	}
	if got := BoolResult(false).Ratio(); got != 0 {
		t.Errorf("BoolResult(false).Ratio() = %v, want 0", got)
	}
	if got := BoolResult(true).Total(); got != 1 {
		t.Errorf("BoolResult(true).Total() = %d, want 1", got)
	}
}

func TestInTimeWindow(t *testing.T) {
	tests := []struct {
		name             string
		hour, start, end int
		want             bool
	}{
		{"inside normal window", 12, 9, 17, true},
		{"start edge inclusive", 9, 9, 17, true},
		{"end edge inclusive", 17, 9, 17, true},
		{"before normal window", 8, 9, 17, false},
		{"after normal window", 18, 9, 17, false},
		{"overnight late evening", 23, 22, 6, true},
		{"overnight early morning", 3, 22, 6, true},
		{"overnight start edge", 22, 22, 6, true},
		{"overnight end edge", 6, 22, 6, true},
		{"overnight outside", 12, 22, 6, false},
		{"single hour window", 5, 5, 5, true},
		{"single hour window miss", 6, 5, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inTimeWindow(tt.hour, tt.start, tt.end); got != tt.want {
				t.Errorf("inTimeWindow(%d, %d, %d) = %v, want %v", tt.hour, tt.start, tt.end, got, tt.want)
			}
		})
	}
}
