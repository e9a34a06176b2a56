package classify

const (
	clarifyUnknown   = "Could you describe the role you want to advertise, or share a link to an existing job posting?"
	clarifyWeakBrief = "Could you tell me a bit more about the role, such as its main responsibilities and who is hiring?"
	clarifyLink      = "Is this link a job posting you want to adapt? If so, add a sentence about the role you are hiring for."
)

// ClarifyingQuestion returns the question to ask when cls is not reliable
// enough to generate from.
func ClarifyingQuestion(cls Classification) string {
	switch cls.Mode {
	case ModeBrief:
		return clarifyWeakBrief
	case ModeReferenceLink, ModeBriefWithLink:
		return clarifyLink
	default:
		return clarifyUnknown
	}
}
