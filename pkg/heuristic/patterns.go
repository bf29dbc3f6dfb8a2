package heuristic

import "regexp"

// Pattern tables for the staged classifier. Each stage counts independent
// hits; thresholds live in heuristic.go.

var (
	// Sender local-parts that indicate bulk/marketing mail
	spamSenderPrefixes = []string{
		"noreply@", "no-reply@", "donotreply@", "do-not-reply@",
		"marketing@", "promo@", "promotions@", "deals@", "offers@",
		"newsletter@", "news@", "mailer@", "bounce@",
	}

	// Generic local-parts that are only suspicious on non-owned domains
	genericSenderPrefixes = []string{"info@", "hello@", "contact@", "sales@"}

	// Known ESP and social sending domains
	bulkSendingDomains = []string{
		"mailchimp.com", "mailchimpapp.net", "sendgrid.net", "sendgrid.com",
		"constantcontact.com", "hubspot.com", "hubspotemail.net",
		"mailgun.org", "mailgun.net", "campaign-monitor.com", "sendinblue.com",
		"amazonses.com", "substack.com", "mailjet.com",
		"facebookmail.com", "linkedin.com", "twitter.com", "x.com",
		"instagram.com", "pinterest.com", "tiktok.com",
	}

	spamSubjectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)unsubscribe`),
		regexp.MustCompile(`(?i)\d+%\s*off`),
		regexp.MustCompile(`(?i)flash\s+sale`),
		regexp.MustCompile(`(?i)limited\s+time`),
		regexp.MustCompile(`(?i)act\s+now`),
		regexp.MustCompile(`(?i)free\s+(trial|shipping|gift)`),
		regexp.MustCompile(`(?i)exclusive\s+(offer|deal)`),
		regexp.MustCompile(`(?i)last\s+chance`),
		regexp.MustCompile(`(?i)don'?t\s+miss`),
		regexp.MustCompile(`(?i)buy\s+now`),
		regexp.MustCompile(`(?i)coupon|voucher|discount\s+code`),
		regexp.MustCompile(`(?i)congratulations.*(won|winner)`),
	}

	spamBodyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)unsubscribe`),
		regexp.MustCompile(`(?i)opt[\s-]?out`),
		regexp.MustCompile(`(?i)click\s+here\s+to\s+(stop|remove)`),
		regexp.MustCompile(`(?i)privacy\s+policy`),
		regexp.MustCompile(`(?i)update\s+(your\s+)?(email\s+)?preferences`),
		regexp.MustCompile(`(?i)you\s+(are\s+)?receiv(e|ing)\s+this\s+(email|message)`),
		regexp.MustCompile(`(?i)view\s+(this\s+email\s+)?in\s+(your\s+)?browser`),
		regexp.MustCompile(`(?i)no\s+longer\s+wish\s+to\s+receive`),
	}

	newsletterSubjectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)newsletter`),
		regexp.MustCompile(`(?i)\bdigest\b`),
		regexp.MustCompile(`(?i)this\s+week\s+in`),
		regexp.MustCompile(`(?i)weekly\s+(update|roundup|recap)`),
		regexp.MustCompile(`(?i)monthly\s+(update|roundup|recap)`),
		regexp.MustCompile(`(?i)issue\s+#?\d+`),
		regexp.MustCompile(`(?i)edition\b`),
	}

	newsletterBodyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)read\s+more`),
		regexp.MustCompile(`(?i)view\s+in\s+browser`),
		regexp.MustCompile(`(?i)forward\s+to\s+a\s+friend`),
		regexp.MustCompile(`(?i)in\s+this\s+(issue|edition)`),
		regexp.MustCompile(`(?i)unsubscribe`),
		regexp.MustCompile(`(?i)featured\s+(article|story|post)`),
	}

	notificationSenderPrefixes = []string{
		"notifications@", "notification@", "alerts@", "alert@",
		"system@", "admin@", "automated@", "auto@", "security@",
		"accounts@", "account@", "support@",
	}

	notificationSubjectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)password\s+reset`),
		regexp.MustCompile(`(?i)verify\s+your\s+(email|account)`),
		regexp.MustCompile(`(?i)security\s+alert`),
		regexp.MustCompile(`(?i)sign[\s-]?in\s+(attempt|alert|notification)`),
		regexp.MustCompile(`(?i)shipping\s+(confirmation|update)`),
		regexp.MustCompile(`(?i)your\s+order\s+(has\s+)?(shipped|been\s+delivered)`),
		regexp.MustCompile(`(?i)delivery\s+(confirmation|notification)`),
		regexp.MustCompile(`(?i)receipt\s+for\s+your`),
		regexp.MustCompile(`(?i)two[\s-]?factor|verification\s+code`),
	}

	// Business relevance keyword tables (stage 4)
	businessKeywords = []string{
		"invoice", "payment", "contract", "proposal", "quote", "estimate",
		"meeting", "project", "deadline", "report", "budget", "account",
		"tax", "1099", "w-2", "w2", "filing", "return", "audit", "irs",
		"quarterly", "statement", "balance", "reconcile", "payroll",
		"question", "help", "review", "document", "form", "signature",
	}

	serviceKeywords = []string{
		"bookkeeping", "accounting", "tax preparation", "tax filing",
		"consultation", "advisory", "compliance", "incorporation",
		"financial statement", "engagement letter",
	}

	personalEmailProviders = []string{
		"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "aol.com",
		"icloud.com", "me.com", "protonmail.com", "proton.me", "live.com",
	}

	replyForwardPrefix = regexp.MustCompile(`(?i)^\s*(re|fwd?)\s*:`)

	questionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\?`),
		regexp.MustCompile(`(?i)\bcan\s+you\b`),
		regexp.MustCompile(`(?i)\bcould\s+you\b`),
		regexp.MustCompile(`(?i)\bwould\s+you\b`),
		regexp.MustCompile(`(?i)\bplease\s+(send|provide|confirm|advise|let\s+me\s+know)\b`),
		regexp.MustCompile(`(?i)\bi\s+need\b`),
		regexp.MustCompile(`(?i)\bwondering\s+if\b`),
	}
)

// Category cascade patterns (stage 5), evaluated in order; first match wins.

var (
	urgentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\burgent\b`),
		regexp.MustCompile(`(?i)\basap\b`),
		regexp.MustCompile(`(?i)\bemergency\b`),
		regexp.MustCompile(`(?i)\bimmediately\b`),
		regexp.MustCompile(`(?i)\bcritical\b`),
		regexp.MustCompile(`(?i)time[\s-]sensitive`),
	}

	documentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\battach(ed|ment)?\b`),
		regexp.MustCompile(`(?i)\b(send|provide|need|missing)\b.{0,40}\b(document|file|form|copy|record)s?\b`),
		regexp.MustCompile(`(?i)\bplease\s+sign\b`),
		regexp.MustCompile(`(?i)\bupload\b`),
	}

	paymentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\binvoice\b`),
		regexp.MustCompile(`(?i)\bpayment\b`),
		regexp.MustCompile(`(?i)\bbill(ing)?\b`),
		regexp.MustCompile(`(?i)\b(pay|paid|owe|owed|balance\s+due)\b`),
		regexp.MustCompile(`(?i)\$\s?\d`),
		regexp.MustCompile(`(?i)\brefund\b`),
	}

	appointmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(schedule|reschedule)\b`),
		regexp.MustCompile(`(?i)\b(meeting|appointment|call)\b`),
		regexp.MustCompile(`(?i)\bavailab(le|ility)\b`),
		regexp.MustCompile(`(?i)\bcalendar\b`),
		regexp.MustCompile(`(?i)\b(zoom|meet|teams)\s+(link|call|meeting)\b`),
	}

	taxPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btax(es)?\b`),
		regexp.MustCompile(`(?i)\b(1099|1040|w-?2|w-?9|k-?1)\b`),
		regexp.MustCompile(`(?i)\birs\b`),
		regexp.MustCompile(`(?i)\bfiling\b`),
		regexp.MustCompile(`(?i)\b(tax\s+)?return\b`),
		regexp.MustCompile(`(?i)\bextension\b`),
	}

	compliancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bdeadline\b`),
		regexp.MustCompile(`(?i)\bcompliance\b`),
		regexp.MustCompile(`(?i)\bdue\s+(date|by)\b`),
		regexp.MustCompile(`(?i)\bregulat(ion|ory)\b`),
		regexp.MustCompile(`(?i)\bnotice\b`),
		regexp.MustCompile(`(?i)\bpenalty\b`),
	}

	followUpPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bfollow(ing)?[\s-]?up\b`),
		regexp.MustCompile(`(?i)\bchecking\s+in\b`),
		regexp.MustCompile(`(?i)\bany\s+update\b`),
		regexp.MustCompile(`(?i)\bcircling\s+back\b`),
		regexp.MustCompile(`(?i)\breminder\b`),
	}

	informationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bfyi\b`),
		regexp.MustCompile(`(?i)for\s+your\s+(information|records)`),
		regexp.MustCompile(`(?i)\bjust\s+(letting|wanted)\s+(you|to)\b`),
		regexp.MustCompile(`(?i)\bno\s+action\s+(needed|required)\b`),
		regexp.MustCompile(`(?i)\bheads[\s-]?up\b`),
	}

	// Priority cascade keywords
	importantKeywords = []string{
		"important", "priority", "needed", "required", "waiting", "overdue",
		"deadline", "due",
	}
	fyiKeywords = []string{
		"fyi", "no action needed", "no action required", "for your records",
		"just so you know",
	}

	positiveWords = []string{
		"thanks", "thank you", "appreciate", "great", "wonderful",
		"excellent", "perfect", "happy", "pleased", "congratulations",
	}
	negativeWords = []string{
		"unhappy", "disappointed", "frustrated", "complaint", "problem",
		"issue", "wrong", "error", "upset", "angry", "unacceptable",
	}
)

func countPatternHits(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

func anyPattern(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
