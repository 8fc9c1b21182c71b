package enums

import (
	"fmt"
	"strings"
)

// ReviewExperience is the buyer's overall sentiment attached to a review.
type ReviewExperience string

const (
	ReviewExperiencePositive ReviewExperience = "positive"
	ReviewExperienceNeutral  ReviewExperience = "neutral"
	ReviewExperienceNegative ReviewExperience = "negative"
)

var validReviewExperiences = []ReviewExperience{
	ReviewExperiencePositive,
	ReviewExperienceNeutral,
	ReviewExperienceNegative,
}

func (e ReviewExperience) String() string {
	return string(e)
}

func (e ReviewExperience) IsValid() bool {
	for _, candidate := range validReviewExperiences {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseReviewExperience(value string) (ReviewExperience, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validReviewExperiences {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid review experience %q", value)
}
