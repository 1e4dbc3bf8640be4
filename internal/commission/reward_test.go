package commission

import (
	"testing"

	"github.com/clickwise/commission-svc/internal/models"
)

func TestParseReward(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantType  models.RewardType
		wantValue float64
	}{
		{"euro suffix", "5€", models.RewardFixed, 500},
		{"dollar prefix", "$5", models.RewardFixed, 500},
		{"decimal major units", "7.50", models.RewardFixed, 750},
		{"percentage", "10%", models.RewardPercentage, 10},
		{"decimal percentage", "12.5%", models.RewardPercentage, 12.5},
		{"spaced percentage", " 20 % ", models.RewardPercentage, 20},
		{"bare number", "50", models.RewardFixed, 5000},
		{"garbage degrades to zero", "five euros", models.RewardFixed, 0},
		{"negative percentage degrades", "-5%", models.RewardFixed, 0},
		{"negative fixed degrades", "-5", models.RewardFixed, 0},
		{"empty", "", models.RewardFixed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReward(tt.spec)
			if got.Type != tt.wantType {
				t.Errorf("ParseReward(%q).Type = %s, want %s", tt.spec, got.Type, tt.wantType)
			}
			if got.Value != tt.wantValue {
				t.Errorf("ParseReward(%q).Value = %v, want %v", tt.spec, got.Value, tt.wantValue)
			}
		})
	}
}

func TestComputeReward(t *testing.T) {
	tests := []struct {
		name string
		net  int64
		spec RewardSpec
		want int64
	}{
		{"percentage floors", 9999, RewardSpec{Type: models.RewardPercentage, Value: 10}, 999},
		{"percentage of net", 10000, RewardSpec{Type: models.RewardPercentage, Value: 20}, 2000},
		{"percentage of zero net", 0, RewardSpec{Type: models.RewardPercentage, Value: 10}, 0},
		{"percentage of negative net", -500, RewardSpec{Type: models.RewardPercentage, Value: 10}, 0},
		{"fixed ignores net magnitude", 100, RewardSpec{Type: models.RewardFixed, Value: 500}, 500},
		{"fixed on zero net pays nothing", 0, RewardSpec{Type: models.RewardFixed, Value: 500}, 0},
		{"fixed on negative net pays nothing", -100, RewardSpec{Type: models.RewardFixed, Value: 500}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeReward(tt.net, tt.spec)
			if got != tt.want {
				t.Errorf("ComputeReward(%d, %+v) = %d, want %d", tt.net, tt.spec, got, tt.want)
			}
		})
	}
}
