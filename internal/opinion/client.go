// Package opinion wraps the remote-model signal source. It owns prompt
// construction and reply parsing; the completer behind it owns transport,
// authentication and quota.
package opinion

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/core"
	"github.com/mailwatch/phishfilter/internal/textnorm"
)

// TextCompleter is one blocking call to a remote language model: prompt
// text in, complete reply text out.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const promptFormat = `Analyze this email and determine if it is a phishing attempt.
Check the sender's credibility, URL links, urgency, and any suspicious content.

Email Content:
%s

%s
Provide a detailed analysis with the following structure:
1. Is this a phishing email? (Yes/No)
2. Phishing score (0-100%%)
3. Key indicators (list specific phishing indicators found)
4. Safe indicators (list indicators suggesting the email is legitimate)
5. Recommendations

Format your response as a JSON object with the following keys:
- is_phishing (boolean)
- phishing_score (number between 0-100)
- key_indicators (array of strings)
- safe_indicators (array of strings)
- recommendations (array of strings)
- analysis (string with detailed explanation)`

// Client sends structured email content to a remote model and normalizes
// its reply into an ExternalVerdict.
type Client struct {
	completer   TextCompleter
	logger      *zap.Logger
	maxBodySize int
}

// NewClient creates a new opinion client. maxBodySize bounds how much of
// the email body is embedded in the prompt; zero means no limit.
func NewClient(completer TextCompleter, logger *zap.Logger, maxBodySize int) *Client {
	return &Client{
		completer:   completer,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// Consult asks the remote model for its opinion on one email. Any failure
// is recovered into a verdict carrying the error text; the caller never
// sees a hard failure from this path.
func (c *Client) Consult(ctx context.Context, bodyText string, meta core.OpinionMetadata) core.ExternalVerdict {
	prompt := c.buildPrompt(bodyText, meta)

	reply, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("Remote opinion call failed", zap.Error(err))
		return core.ExternalVerdict{
			IsPhishing: false,
			Score:      0,
			Err:        err.Error(),
		}
	}

	verdict := ParseReply(reply)
	if verdict.ParseError != "" {
		c.logger.Debug("Remote reply parsed heuristically",
			zap.String("parse_error", verdict.ParseError))
	}

	return verdict
}

// buildPrompt embeds the body text and a metadata block with the
// authentication outcomes spelled out as human words.
func (c *Client) buildPrompt(bodyText string, meta core.OpinionMetadata) string {
	var b strings.Builder
	b.WriteString("Metadata:\n")
	fmt.Fprintf(&b, "sender: %s\n", meta.Sender)
	fmt.Fprintf(&b, "subject: %s\n", meta.Subject)
	fmt.Fprintf(&b, "spf_pass: %s\n", meta.SPF.Word())
	fmt.Fprintf(&b, "dkim_pass: %s\n", meta.DKIM.Word())
	fmt.Fprintf(&b, "dmarc_pass: %s\n", meta.DMARC.Word())
	if meta.HasAttachment {
		fmt.Fprintf(&b, "has_attachment: Yes\n")
	} else {
		fmt.Fprintf(&b, "has_attachment: No\n")
	}

	body := textnorm.Truncate(bodyText, c.maxBodySize)
	return fmt.Sprintf(promptFormat, body, b.String())
}
