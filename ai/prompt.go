package ai

import (
	"fmt"

	tekio "github.com/tekio-be/leads"
)

const systemPrompt = `You are a sales assistant for Tekio, a modern MSP (Managed Service Provider) for micro SMEs in Belgium.
Your role is to help prepare professional and personalized email responses to potential leads.

Tekio offers three plans:
- Bronze (€29/user/month): Helpdesk support, Monitoring, Cloud backup
- Silver (€49/user/month): All Bronze features + Advanced security + Microsoft 365 management (Most popular)
- Gold (€79/user/month): All Silver features + VoIP included + AI & automation + Dedicated engineer

Our key selling points:
- Response time under 15 minutes
- 24/7 security monitoring
- AI-powered automation
- Free IT audit for new prospects

Always be polite, professional, and concise. Focus on the value we bring to small businesses.`

var languageNames = map[tekio.Language]string{
	tekio.LanguageFR: "French",
	tekio.LanguageNL: "Dutch",
	tekio.LanguageEN: "English",
}

// LanguageName returns the language the reply is drafted in. Unknown values fall back to French.
func LanguageName(lang tekio.Language) string {
	if name, ok := languageNames[lang]; ok {
		return name
	}
	return "French"
}

func userPrompt(lead tekio.Lead) string {
	return fmt.Sprintf(`Based on the following lead information, please:
1. Provide a brief 2-3 line summary of the lead
2. Recommend one of our plans (Bronze, Silver, or Gold) with a short explanation of why it fits their needs
3. Draft a polite, concise email reply in %s suggesting a short call and mentioning our free IT audit

Lead Information:
- Company: %s
- Contact: %s
- Email: %s
- Phone: %s
- Number of users estimate: %s
- Source: %s
- Message: %s
- Language preference: %s

Please format your response clearly with sections for Summary, Recommended Plan, and Email Draft.`,
		LanguageName(lead.Language),
		orDefault(lead.CompanyName, "Not provided"),
		orDefault(lead.ContactName, "Not provided"),
		lead.Email,
		orDefault(lead.Phone, "Not provided"),
		orDefault(lead.NbUsersEstimate, "Not provided"),
		lead.Source,
		orDefault(lead.Message, "No message provided"),
		lead.Language,
	)
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
