package domain

import "fmt"

// Lead-time bounds accepted for MinutesBefore.
const (
	MinLeadMinutes = 5
	MaxLeadMinutes = 120
)

// Settings defaults.
const (
	DefaultLeadMinutes            = 60
	DefaultGroupingGapMinutes     = 150
	DefaultSecondReminderMinutes  = 20
	DefaultCriticalMinutes        = 30
	DefaultResponseTimeoutMinutes = 15
	DefaultLocale                 = "tr"
)

// MessageTemplates holds the outbound template variants for one locale.
// Recognized placeholders: {driver_name}, {order_id}, {minutes},
// {pickup_time}, {pickup_address}, {order_count}, {order_list}.
type MessageTemplates struct {
	Single string `json:"single"`
	Multi  string `json:"multi"`
	Second string `json:"second"`
}

// ReminderSettings is the runtime configuration of the scheduling and
// escalation engine. It is persisted, loaded once per tick, and treated as
// immutable for the duration of a run.
type ReminderSettings struct {
	IsActive               bool
	MinutesBefore          int
	GroupingGapMinutes     int
	SecondReminderMinutes  int
	CriticalMinutes        int
	ResponseTimeoutMinutes int
	Locale                 string
	Templates              map[string]MessageTemplates
}

// DefaultReminderSettings returns the engine defaults with Turkish templates.
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		IsActive:               true,
		MinutesBefore:          DefaultLeadMinutes,
		GroupingGapMinutes:     DefaultGroupingGapMinutes,
		SecondReminderMinutes:  DefaultSecondReminderMinutes,
		CriticalMinutes:        DefaultCriticalMinutes,
		ResponseTimeoutMinutes: DefaultResponseTimeoutMinutes,
		Locale:                 DefaultLocale,
		Templates: map[string]MessageTemplates{
			"tr": {
				Single: "Merhaba {driver_name}, {order_id} nolu siparisin alim saati {pickup_time} ({pickup_address}). Yaklasik {minutes} dakika kaldi. Onayliyor musunuz? (EVET/HAYIR)",
				Multi:  "Merhaba {driver_name}, bugun {order_count} siparisiniz var: {order_list}. Ilk alim saati {pickup_time}, yaklasik {minutes} dakika kaldi. Onayliyor musunuz? (EVET/HAYIR)",
				Second: "Hatirlatma {driver_name}: {order_count} siparisiniz icin onay bekliyoruz. Ilk alim saati {pickup_time}. Lutfen EVET veya HAYIR yazin.",
			},
			"en": {
				Single: "Hi {driver_name}, order {order_id} picks up at {pickup_time} ({pickup_address}), in about {minutes} minutes. Please confirm (YES/NO).",
				Multi:  "Hi {driver_name}, you have {order_count} orders today: {order_list}. First pickup at {pickup_time}, in about {minutes} minutes. Please confirm (YES/NO).",
				Second: "Reminder {driver_name}: still waiting on your confirmation for {order_count} order(s). First pickup at {pickup_time}. Please reply YES or NO.",
			},
		},
	}
}

// Normalize clamps out-of-range values back to safe bounds and fills empty
// locale/template data from defaults. Invalid persisted values must not stall
// the tick, so this repairs instead of rejecting.
func (s *ReminderSettings) Normalize() {
	if s.MinutesBefore < MinLeadMinutes {
		s.MinutesBefore = MinLeadMinutes
	}
	if s.MinutesBefore > MaxLeadMinutes {
		s.MinutesBefore = MaxLeadMinutes
	}
	if s.GroupingGapMinutes <= 0 {
		s.GroupingGapMinutes = DefaultGroupingGapMinutes
	}
	if s.SecondReminderMinutes <= 0 {
		s.SecondReminderMinutes = DefaultSecondReminderMinutes
	}
	if s.CriticalMinutes <= 0 {
		s.CriticalMinutes = DefaultCriticalMinutes
	}
	if s.ResponseTimeoutMinutes <= 0 {
		s.ResponseTimeoutMinutes = DefaultResponseTimeoutMinutes
	}
	if s.Locale == "" {
		s.Locale = DefaultLocale
	}
	if len(s.Templates) == 0 {
		s.Templates = DefaultReminderSettings().Templates
	}
}

// TemplatesFor resolves the template set for a locale, falling back to the
// configured default locale and then to built-in defaults.
func (s *ReminderSettings) TemplatesFor(locale string) MessageTemplates {
	if tpl, ok := s.Templates[locale]; ok {
		return tpl
	}
	if tpl, ok := s.Templates[s.Locale]; ok {
		return tpl
	}
	return DefaultReminderSettings().Templates[DefaultLocale]
}

func (s *ReminderSettings) Validate() error {
	if s.MinutesBefore < MinLeadMinutes || s.MinutesBefore > MaxLeadMinutes {
		return fmt.Errorf("%w: minutes_before must be within [%d, %d]", ErrValidation, MinLeadMinutes, MaxLeadMinutes)
	}
	if s.GroupingGapMinutes <= 0 {
		return fmt.Errorf("%w: grouping_gap_minutes must be positive", ErrValidation)
	}
	if s.SecondReminderMinutes <= 0 {
		return fmt.Errorf("%w: second_reminder_after_minutes must be positive", ErrValidation)
	}
	if s.CriticalMinutes <= 0 {
		return fmt.Errorf("%w: critical_after_minutes must be positive", ErrValidation)
	}
	return nil
}
