package notify

const (
	defaultAuditMessage  = "Audit gratuit demandé depuis le CTA"
	defaultExpertMessage = "Demande pour parler à un expert Tekio"
)

// ParseLeadType maps a CTA path segment to a lead type.
func ParseLeadType(s string) (LeadType, bool) {
	switch LeadType(s) {
	case TypeAudit, TypeExpert, TypeContact:
		return LeadType(s), true
	}
	return "", false
}

// CTAPayload builds the payload for a call-to-action button that is relayed
// without a stored lead. Audit and expert requests get a default message when
// none is given.
func CTAPayload(leadType LeadType, source string, data Payload) Payload {
	data.Type = leadType
	data.Source = source

	if data.Message == nil || *data.Message == "" {
		var msg string
		switch leadType {
		case TypeAudit:
			msg = defaultAuditMessage
		case TypeExpert:
			msg = defaultExpertMessage
		}
		if msg != "" {
			data.Message = &msg
		}
	}

	return data
}
