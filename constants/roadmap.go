package constants

import "strings"

// StepType is the kind of a roadmap step.
type StepType string

const (
	StepCourse        StepType = "course"
	StepProject       StepType = "project"
	StepCertification StepType = "certification"
	StepInternship    StepType = "internship"
	StepMilestone     StepType = "milestone"
)

// StepTypes lists the allowed step kinds in display order.
func StepTypes() []string {
	return []string{string(StepCourse), string(StepProject), string(StepCertification), string(StepInternship), string(StepMilestone)}
}

// Tier is a learner's progression level, used to pick NSQF course levels.
type Tier string

const (
	TierNovice     Tier = "Novice"
	TierApprentice Tier = "Apprentice"
	TierAdept      Tier = "Adept"
	TierExpert     Tier = "Expert"
	TierMaster     Tier = "Master"
)

var tierLevels = map[Tier][]int{
	TierNovice:     {3, 4},
	TierApprentice: {5},
	TierAdept:      {6, 7},
	TierExpert:     {8, 9, 10},
	TierMaster:     {9, 10},
}

// Tiers lists the tier names in progression order.
func Tiers() []string {
	return []string{string(TierNovice), string(TierApprentice), string(TierAdept), string(TierExpert), string(TierMaster)}
}

// ParseTier matches name case-insensitively; empty and unknown names are Novice.
func ParseTier(name string) Tier {
	for _, t := range Tiers() {
		if strings.EqualFold(t, strings.TrimSpace(name)) {
			return Tier(t)
		}
	}
	return TierNovice
}

// NSQFLevels returns the NSQF levels targeted for a tier. Unknown tiers are treated as Novice.
func NSQFLevels(t Tier) []int {
	lv, ok := tierLevels[t]
	if !ok {
		lv = tierLevels[TierNovice]
	}
	return append([]int(nil), lv...)
}
