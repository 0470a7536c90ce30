package entity

import "time"

const (
	DefaultAutoExtendThresholdMinutes = 5
	DefaultAutoExtendDurationMinutes  = 10
)

// AuctionSettings is the process-wide auto-extension configuration.
type AuctionSettings struct {
	AutoExtendThresholdMinutes int `json:"autoExtendThresholdMinutes" validate:"min=1,max=60"`
	AutoExtendDurationMinutes  int `json:"autoExtendDurationMinutes" validate:"min=1,max=120"`
}

func DefaultAuctionSettings() AuctionSettings {
	return AuctionSettings{
		AutoExtendThresholdMinutes: DefaultAutoExtendThresholdMinutes,
		AutoExtendDurationMinutes:  DefaultAutoExtendDurationMinutes,
	}
}

func (s AuctionSettings) Threshold() time.Duration {
	return time.Duration(s.AutoExtendThresholdMinutes) * time.Minute
}

func (s AuctionSettings) Duration() time.Duration {
	return time.Duration(s.AutoExtendDurationMinutes) * time.Minute
}

// SettingsPatch carries a partial settings update; nil fields keep their
// current value.
type SettingsPatch struct {
	AutoExtendThresholdMinutes *int `json:"autoExtendThresholdMinutes,omitempty"`
	AutoExtendDurationMinutes  *int `json:"autoExtendDurationMinutes,omitempty"`
}

func (p SettingsPatch) Apply(s AuctionSettings) AuctionSettings {
	if p.AutoExtendThresholdMinutes != nil {
		s.AutoExtendThresholdMinutes = *p.AutoExtendThresholdMinutes
	}
	if p.AutoExtendDurationMinutes != nil {
		s.AutoExtendDurationMinutes = *p.AutoExtendDurationMinutes
	}
	return s
}
