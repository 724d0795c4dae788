package config

import "github.com/tieubaoca/support-assistant/types"

// DefaultSources is the built-in help-center registry used when the config
// file does not list any sources.
var DefaultSources = []SourceConfig{
	{ID: "JIOBIZ", URL: "https://jiopay.com/business"},
	{ID: "JIOHELP", URL: "https://jiopay.com/business/help-center"},
	{ID: "JIOMAIN", URL: "https://www.jiopay.in/"},
	{ID: "KOTAKFAQ", URL: "https://www.kotak.com/en/personal-banking/cards/debit-cards/debit-card-services/jio-pay/jio-pay-faqs.html"},
	{ID: "JIOPG", URL: "https://www.jiopay.com/business/paymentgateway"},
	{ID: "KOTAKJIO", URL: "https://www.kotak.com/en/personal-banking/cards/debit-cards/debit-card-services/jio-pay.html"},
	{ID: "JIOCOMPLAINT", URL: "https://jiopay.com/business/complaint-resolution-escalation-matrix"},
	{ID: "PAYMENTGATEWAY", URL: "https://jiopay.com/business/paymentgateway"},
}

// SampleQuestions are offered in the web sidebar.
var SampleQuestions = []types.SampleQuestion{
	{Label: "📝 Summarize Conversation", Prompt: "Can you summarize the chat?"},
	{Label: "💰 Payment Issues", Prompt: "My payment through JioPay failed. What should I do?"},
	{Label: "🏪 Merchant Services", Prompt: "How can I set up JioPay for my business?"},
}

func defaultSourceValues() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(DefaultSources))
	for _, s := range DefaultSources {
		out = append(out, map[string]interface{}{"id": s.ID, "url": s.URL})
	}
	return out
}
