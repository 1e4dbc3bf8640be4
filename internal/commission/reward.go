package commission

import (
	"math"
	"strconv"
	"strings"

	"github.com/clickwise/commission-svc/internal/models"
)

// RewardSpec is a parsed reward configuration. Fixed values are minor
// units; percentage values are percent points applied to the net amount.
type RewardSpec struct {
	Type  models.RewardType
	Value float64
}

// ParseReward parses a display-style reward spec like "50€", "$5", "10%" or
// a bare number (major units, fixed). Unparseable specs degrade to a zero
// fixed reward rather than failing the pipeline.
func ParseReward(spec string) RewardSpec {
	trimmed := strings.TrimSpace(spec)

	if strings.HasSuffix(trimmed, "%") {
		value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(trimmed, "%")), 64)
		if err == nil && value >= 0 {
			return RewardSpec{Type: models.RewardPercentage, Value: value}
		}
		return RewardSpec{Type: models.RewardFixed, Value: 0}
	}

	cleaned := strings.Trim(trimmed, "€$ ")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value < 0 {
		return RewardSpec{Type: models.RewardFixed, Value: 0}
	}
	// Fixed rewards are written in major units; store minor units.
	return RewardSpec{Type: models.RewardFixed, Value: math.Round(value * 100)}
}

// ComputeReward applies a reward spec against the net amount. Rewards are
// never computed against gross: partners do not earn on processor fees or
// tax collected on the platform's behalf. A sale whose fees and tax consume
// the gross earns nothing, fixed or percentage.
func ComputeReward(netAmount int64, spec RewardSpec) int64 {
	if netAmount <= 0 {
		return 0
	}
	if spec.Type == models.RewardPercentage {
		return int64(math.Floor(float64(netAmount) * spec.Value / 100))
	}
	return int64(spec.Value)
}
