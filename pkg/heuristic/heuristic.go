// Package heuristic implements the first stage of the triage pipeline: a
// pure, pattern-based classifier that rejects bulk mail and scores business
// relevance before any AI call is made.
package heuristic

import (
	"fmt"
	"strings"

	emaildomain "triagedesk-backend/internal/email/domain"
)

// Relevance outcomes of the heuristic stage.
const (
	RelevanceRelevant     = "relevant"
	RelevanceSpam         = "spam"
	RelevanceNewsletter   = "newsletter"
	RelevanceNotification = "notification"
	RelevanceLow          = "low_relevance"
)

// Business relevance scoring weights (stage 4). A message is relevant when
// its raw score reaches RelevanceThreshold.
const (
	ScoreBusinessKeyword  = 10
	ScoreServiceKeyword   = 15
	ScorePersonalSender   = 20
	ScoreReplyPrefix      = 15
	ScoreQuestionPhrasing = 10
	RelevanceThreshold    = 25
)

// spamReasonThreshold: a message is spam once this many independent reason
// categories accumulate.
const spamReasonThreshold = 2

// Classifier holds the static configuration of the heuristic stage.
type Classifier struct {
	ownedDomains map[string]bool
}

// New creates a heuristic classifier. ownedDomains are the business's own
// domains; generic senders (info@, hello@) on them are not penalized.
func New(ownedDomains []string) *Classifier {
	owned := make(map[string]bool, len(ownedDomains))
	for _, d := range ownedDomains {
		owned[strings.ToLower(d)] = true
	}
	return &Classifier{ownedDomains: owned}
}

// Result is the heuristic stage output.
type Result struct {
	Relevance          string
	IsBusinessRelevant bool
	Confidence         float64
	Score              int
	Reasons            []string
	Classification     *emaildomain.Classification
}

// Classify runs the fixed stage order: spam -> newsletter -> notification ->
// relevance scoring -> category/priority/sentiment inference. First rejecting
// stage wins; rejected mail never reaches the scoring stage.
func (c *Classifier) Classify(email *emaildomain.EmailMessage) Result {
	sender := strings.ToLower(email.From)
	subject := strings.ToLower(email.Subject)
	body := strings.ToLower(email.Body)

	if reasons := c.spamReasons(sender, email.Subject, email.Body); len(reasons) >= spamReasonThreshold {
		return rejected(RelevanceSpam, emaildomain.CategorySpam, reasons)
	}

	if reasons := newsletterReasons(email.Subject, email.Body); reasons != nil {
		return rejected(RelevanceNewsletter, emaildomain.CategorySpam, reasons)
	}

	if reasons := notificationReasons(sender, email.Subject); reasons != nil {
		return rejected(RelevanceNotification, emaildomain.CategoryInformation, reasons)
	}

	score, reasons := c.relevanceScore(sender, email.Subject, email.Body)
	confidence := float64(score) / 100
	if confidence > 1 {
		confidence = 1
	}

	if score < RelevanceThreshold {
		res := rejected(RelevanceLow, emaildomain.CategoryOther, reasons)
		res.Score = score
		return res
	}

	category := inferCategory(subject, body)
	cls := &emaildomain.Classification{
		Category:           category,
		Priority:           inferPriority(subject, body),
		Confidence:         confidence,
		Sentiment:          inferSentiment(body),
		RequiresResponse:   category == emaildomain.CategoryQuestion || anyPattern(email.Subject+" "+email.Body, questionPatterns),
		IsBusinessRelevant: true,
	}

	return Result{
		Relevance:          RelevanceRelevant,
		IsBusinessRelevant: true,
		Confidence:         confidence,
		Score:              score,
		Reasons:            reasons,
		Classification:     cls,
	}
}

// rejected builds the synthetic low-confidence "archive" classification that
// filtered mail carries. It never proceeds to the deep or assignment stages.
func rejected(relevance string, category emaildomain.Category, reasons []string) Result {
	return Result{
		Relevance:  relevance,
		Confidence: 0.2,
		Reasons:    reasons,
		Classification: &emaildomain.Classification{
			Category:         category,
			Priority:         emaildomain.PriorityLow,
			Confidence:       0.2,
			Sentiment:        emaildomain.SentimentNeutral,
			RequiresResponse: false,
			SuggestedAction:  emaildomain.ActionArchive,
		},
	}
}

// spamReasons collects independent spam indicators. Each reason category
// contributes at most one entry, so the threshold counts distinct signals.
func (c *Classifier) spamReasons(sender, subject, body string) []string {
	var reasons []string

	if matched, prefix := hasAnyPrefix(sender, spamSenderPrefixes); matched {
		reasons = append(reasons, "sender pattern: "+prefix)
	} else if matched, prefix := hasAnyPrefix(sender, genericSenderPrefixes); matched && !c.ownedDomains[emaildomain.DomainOf(sender)] {
		reasons = append(reasons, "generic sender on external domain: "+prefix)
	}

	domain := emaildomain.DomainOf(sender)
	for _, d := range bulkSendingDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			reasons = append(reasons, "bulk sending domain: "+d)
			break
		}
	}

	if n := countPatternHits(subject, spamSubjectPatterns); n > 0 {
		reasons = append(reasons, fmt.Sprintf("subject patterns (%d)", n))
	}

	if n := countPatternHits(body, spamBodyPatterns); n > 0 {
		reasons = append(reasons, fmt.Sprintf("body patterns (%d)", n))
	}

	return reasons
}

// newsletterReasons requires a newsletter subject pattern plus at least two
// body pattern hits.
func newsletterReasons(subject, body string) []string {
	if !anyPattern(subject, newsletterSubjectPatterns) {
		return nil
	}
	hits := countPatternHits(body, newsletterBodyPatterns)
	if hits < 2 {
		return nil
	}
	return []string{"newsletter subject pattern", fmt.Sprintf("newsletter body patterns (%d)", hits)}
}

func notificationReasons(sender, subject string) []string {
	if matched, prefix := hasAnyPrefix(sender, notificationSenderPrefixes); matched {
		return []string{"automated sender: " + prefix}
	}
	if anyPattern(subject, notificationSubjectPatterns) {
		return []string{"system notification subject"}
	}
	return nil
}

// relevanceScore is the additive stage-4 score over the message text.
func (c *Classifier) relevanceScore(sender, subject, body string) (int, []string) {
	text := strings.ToLower(subject + " " + body)
	score := 0
	var reasons []string

	for _, kw := range businessKeywords {
		if strings.Contains(text, kw) {
			score += ScoreBusinessKeyword
			reasons = append(reasons, "business keyword: "+kw)
		}
	}
	for _, kw := range serviceKeywords {
		if strings.Contains(text, kw) {
			score += ScoreServiceKeyword
			reasons = append(reasons, "service keyword: "+kw)
		}
	}

	domain := emaildomain.DomainOf(sender)
	for _, p := range personalEmailProviders {
		if domain == p {
			score += ScorePersonalSender
			reasons = append(reasons, "personal email provider sender")
			break
		}
	}

	if replyForwardPrefix.MatchString(subject) {
		score += ScoreReplyPrefix
		reasons = append(reasons, "reply/forward subject")
	}

	if anyPattern(subject+" "+body, questionPatterns) {
		score += ScoreQuestionPhrasing
		reasons = append(reasons, "question or request phrasing")
	}

	return score, reasons
}

func hasAnyPrefix(sender string, prefixes []string) (bool, string) {
	for _, p := range prefixes {
		if strings.HasPrefix(sender, p) {
			return true, strings.TrimSuffix(p, "@")
		}
	}
	return false, ""
}
