package core

import "testing"

func TestCalculateDataLoss(t *testing.T) {
	tests := []struct {
		name   string
		before int
		after  int
		want   float64
	}{
		{"no loss", 100, 100, 0},
		{"quarter lost", 100, 75, 25},
		{"all lost", 10, 0, 100},
		{"zero before", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &TransformationLineage{RowsBefore: tt.before, RowsAfter: tt.after}
			if got := l.CalculateDataLoss(); got != tt.want {
				t.Errorf("expected %.1f, got %.1f", tt.want, got)
			}
		})
	}
}

func TestMarkCompleted(t *testing.T) {
	l := &TransformationLineage{RowsBefore: 10, RowsAfter: 8}
	l.MarkCompleted()

	if l.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
	if l.DataLossPercentage != 20 {
		t.Errorf("expected 20%% loss, got %.1f", l.DataLossPercentage)
	}
}

func TestValidationTransitions(t *testing.T) {
	l := &TransformationLineage{}

	l.MarkValidationPassed()
	if !l.IsValidated || l.ValidationStatus != ValidationStatusPassed {
		t.Errorf("unexpected state after pass: %+v", l)
	}

	l.MarkValidationFailed([]string{"loss too high"})
	if l.ValidationStatus != ValidationStatusFailed || len(l.ValidationErrors) != 1 {
		t.Errorf("unexpected state after fail: %+v", l)
	}
}
