package pipeline

import "github.com/MikeSquared-Agency/scribe/internal/config"

const (
	StageMasterFile      = "master_file"
	StageCoreMessaging   = "core_messaging"
	StageIdentityProfile = "identity_profile"
	StageSocialContent   = "social_content"
	StageContentFeedback = "content_feedback"
	StageBrandAnalysis   = "brand_analysis"
)

// Stage is one assistant invocation plus the collection its output is
// saved to. Optional stages run only when the request asks for them.
type Stage struct {
	Name        string
	Collection  string
	AssistantID string
	Optional    bool
}

// Stages returns the fixed stage order with assistant ids from config.
func Stages(a config.Assistants) []Stage {
	return []Stage{
		{Name: StageMasterFile, Collection: "master_files", AssistantID: a.MasterFile},
		{Name: StageCoreMessaging, Collection: "core_messaging", AssistantID: a.CoreMessaging},
		{Name: StageIdentityProfile, Collection: "identity_profiles", AssistantID: a.IdentityProfile},
		{Name: StageSocialContent, Collection: "social_content", AssistantID: a.SocialContent},
		{Name: StageContentFeedback, Collection: "ai_feedback", AssistantID: a.ContentFeedback},
		{Name: StageBrandAnalysis, Collection: "brand_analysis", AssistantID: a.BrandAnalysis, Optional: true},
	}
}

// Lookup finds a stage by name.
func Lookup(stages []Stage, name string) (Stage, bool) {
	for _, s := range stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}
