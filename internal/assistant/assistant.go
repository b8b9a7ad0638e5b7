// Package assistant answers common support questions with canned
// responses. Matching is keyword-based and stateless; the first keyword
// found in the message, in priority order, selects the reply.
package assistant

import "strings"

type cannedResponse struct {
	keyword string
	reply   string
}

// responses in match priority order. Earlier entries win when a message
// contains several keywords.
var responses = []cannedResponse{
	{"loan", "Our platform offers peer-to-peer loans with competitive interest rates. You can request a loan by navigating to the 'Request Loan' page and filling out the necessary information."},
	{"interest", "Interest rates on our platform range from 3% to 15% depending on your trust score and loan amount. The higher your trust score, the lower your interest rate will be."},
	{"repayment", "Loan repayments can be made through our platform. You'll receive notifications when payments are due. We offer flexible repayment options including monthly, bi-weekly, or weekly schedules."},
	{"trust score", "Your trust score is calculated based on your repayment history, verification status, and community participation. You can improve your score by verifying your identity, repaying loans on time, and referring friends to the platform."},
	{"verification", "We use KYC (Know Your Customer) verification to ensure the security of our community. You can complete verification in your account settings under the 'KYC Verification' tab."},
	{"blockchain", "Our platform uses blockchain technology to securely record all loan transactions. This ensures transparency and immutability of all lending activities."},
	{"referral", "You can refer friends using the referral link in your Settings page under the 'Referral System' tab. Both you and your referred friends will receive trust score boosts when they sign up."},
	{"documents", "You can upload and verify your identity documents like Aadhaar Card and Income Tax Return in the Document Verification section. Verified documents will increase your trust score."},
}

const defaultReply = "I'm your TrustFund financial assistant. I can help with questions about loans, interest rates, repayments, trust scores, and more. How can I help you today?"

// Assistant is the support chatbot.
type Assistant struct{}

// New returns the support assistant.
func New() *Assistant {
	return &Assistant{}
}

// Reply returns the canned response for the message, or the default
// greeting when no keyword matches.
func (a *Assistant) Reply(message string) string {
	lower := strings.ToLower(message)
	for _, r := range responses {
		if strings.Contains(lower, r.keyword) {
			return r.reply
		}
	}
	return defaultReply
}
