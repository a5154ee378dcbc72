package sim

import "testing"

func TestResultSteps(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want int
	}{
		{"empty", Result{}, 0},
		{"initial only", Result{Tatm: []float64{1}}, 0},
		{"three steps", Result{Forcing: []float64{1, 2, 3}, Tatm: []float64{0, 1, 2, 3}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Steps(); got != tt.want {
				t.Errorf("Steps() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResultTemperatures(t *testing.T) {
	res := Result{Tatm: []float64{1, 2}, Tocean: []float64{0.1, 0.2}}
	temps := res.Temperatures()
	if len(temps.Tatm) != 2 || temps.Tatm[1] != 2 {
		t.Errorf("Tatm = %v", temps.Tatm)
	}
	if len(temps.Tocean) != 2 || temps.Tocean[1] != 0.2 {
		t.Errorf("Tocean = %v", temps.Tocean)
	}
}
