package wizard

import (
	"sort"
	"strconv"
	"strings"

	"github.com/openvstorage/vpool-wizard/internal/models"
)

// PresetColor classifies a preset or policy for display.
//
// The ordering grey < black < green matters: grey means no policy applies,
// black means a policy could be satisfied with the attached capacity units,
// green means data is actually stored under it. "In use" always wins over
// "available".
type PresetColor string

const (
	ColorGrey  PresetColor = "grey"
	ColorBlack PresetColor = "black"
	ColorGreen PresetColor = "green"
)

func colorRank(c PresetColor) int {
	switch c {
	case ColorGreen:
		return 2
	case ColorBlack:
		return 1
	default:
		return 0
	}
}

// EnhancedPolicy is one parsed (k, m, c, x) tuple with its display colour.
// K data fragments, M parity fragments, C the minimum fragments needed for a
// read, X the total fragment count.
type EnhancedPolicy struct {
	Text     string
	K        int
	M        int
	C        int
	X        int
	Color    PresetColor
	IsActive bool
}

// EnhancedPreset is the display-ready form of a raw preset.
//
// ReplicationFactor is only set (non-zero) when the preset consists of a
// single policy that is plain replication: k=1, c=1 and k+m=x. A preset
// using real erasure coding, or carrying several policies, has no single
// meaningful replication factor.
type EnhancedPreset struct {
	Name              string
	Policies          []EnhancedPolicy
	Color             PresetColor
	InUse             bool
	IsDefault         bool
	Compression       string
	FragmentSize      int64
	Encryption        string
	ReplicationFactor int
}

// EnhancePresets derives the display form of a raw preset list: policies are
// parsed, coloured and the preset takes the best colour across them. The
// output is sorted ascending by preset name. The input is never mutated and
// the same input always yields the same output.
func EnhancePresets(presets []models.Preset) []EnhancedPreset {
	enhanced := make([]EnhancedPreset, 0, len(presets))
	for _, preset := range presets {
		e := EnhancedPreset{
			Name:         preset.Name,
			Policies:     make([]EnhancedPolicy, 0, len(preset.Policies)),
			Color:        ColorGrey,
			InUse:        preset.InUse,
			IsDefault:    preset.IsDefault,
			Compression:  preset.Compression,
			FragmentSize: preset.FragmentSize,
			Encryption:   preset.Encryption,
		}

		for _, text := range preset.Policies {
			policy := EnhancedPolicy{Text: text, Color: ColorGrey}
			if k, m, c, x, ok := parsePolicy(text); ok {
				policy.K, policy.M, policy.C, policy.X = k, m, c, x
			}
			if status, ok := preset.PolicyMetadata[text]; ok {
				if status.IsAvailable {
					policy.Color = ColorBlack
				}
				if status.InUse {
					policy.Color = ColorGreen
				}
				policy.IsActive = status.IsActive
			}
			if colorRank(policy.Color) > colorRank(e.Color) {
				e.Color = policy.Color
			}
			e.Policies = append(e.Policies, policy)
		}

		if len(e.Policies) == 1 {
			p := e.Policies[0]
			if p.K == 1 && p.C == 1 && p.K+p.M == p.X {
				e.ReplicationFactor = p.K + p.M
			}
		}

		enhanced = append(enhanced, e)
	}

	sort.Slice(enhanced, func(i, j int) bool { return enhanced[i].Name < enhanced[j].Name })
	return enhanced
}

// parsePolicy parses a stringified policy tuple of the form "(k, m, c, x)".
func parsePolicy(text string) (k, m, c, x int, ok bool) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, false
	}

	values := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, 0, 0, 0, false
		}
		values[i] = v
	}
	return values[0], values[1], values[2], values[3], true
}
