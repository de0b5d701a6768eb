// Package mailin converts a raw RFC-5322 message into the EmailSignal the
// analysis pipeline consumes. It is caller-side plumbing; the pipeline
// itself never parses mail.
package mailin

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"github.com/mailwatch/phishfilter/internal/core"
)

var (
	anchorPattern  = regexp.MustCompile(`(?is)<a\s[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	bareURLPattern = regexp.MustCompile(`https?://[^\s<>"']+`)
	tagPattern     = regexp.MustCompile(`(?s)<[^>]*>`)
	authPattern    = regexp.MustCompile(`(spf|dkim|dmarc)\s*=\s*(\w+)`)
)

// ParseMessage reads one message and builds the corresponding EmailSignal.
func ParseMessage(r io.Reader) (*core.EmailSignal, error) {
	msg, err := mail.ReadMessage(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	body, hasAttachment, err := extractBody(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract email body: %w", err)
	}

	sig := &core.EmailSignal{
		Sender:        senderAddress(msg.Header.Get("From")),
		Subject:       decodeHeader(msg.Header.Get("Subject")),
		BodyText:      stripHTML(body),
		Links:         extractLinks(body),
		HasAttachment: hasAttachment,
	}
	sig.SPF, sig.DKIM, sig.DMARC = parseAuthResults(msg.Header.Get("Authentication-Results"))
	sig.ID = messageID(msg, body)

	return sig, nil
}

// senderAddress extracts the bare address from a From header.
func senderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(from)
}

func decodeHeader(value string) string {
	dec := new(mime.WordDecoder)
	if decoded, err := dec.DecodeHeader(value); err == nil {
		return decoded
	}
	return value
}

// extractBody returns the message text, preferring text/plain parts of a
// multipart message, and reports whether any part is an attachment.
func extractBody(msg *mail.Message) (string, bool, error) {
	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		raw, rerr := io.ReadAll(msg.Body)
		if rerr != nil {
			return "", false, rerr
		}
		return string(raw), false, nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		raw, rerr := io.ReadAll(msg.Body)
		if rerr != nil {
			return "", false, rerr
		}
		return string(raw), false, nil
	}

	var text bytes.Buffer
	var fallback bytes.Buffer
	hasAttachment := false

	mr := multipart.NewReader(msg.Body, boundary)
	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			break
		}

		disposition := part.Header.Get("Content-Disposition")
		if strings.HasPrefix(strings.ToLower(disposition), "attachment") {
			hasAttachment = true
			continue
		}

		partType := part.Header.Get("Content-Type")
		data, rerr := io.ReadAll(part)
		if rerr != nil {
			continue
		}
		switch {
		case strings.HasPrefix(partType, "text/plain"):
			text.Write(data)
		case strings.HasPrefix(partType, "text/html"):
			fallback.Write(data)
		}
	}

	if text.Len() > 0 {
		return text.String(), hasAttachment, nil
	}
	return fallback.String(), hasAttachment, nil
}

// extractLinks pulls anchors and bare URLs out of the body. Anchor text is
// kept verbatim with markup stripped, since the rule engine compares it
// against the real target.
func extractLinks(body string) []core.Link {
	var links []core.Link
	seen := make(map[string]struct{})

	for _, m := range anchorPattern.FindAllStringSubmatch(body, -1) {
		link := core.Link{
			URL:        m[1],
			AnchorText: strings.TrimSpace(stripHTML(m[2])),
			Domain:     linkDomain(m[1]),
		}
		links = append(links, link)
		seen[link.URL] = struct{}{}
	}

	for _, raw := range bareURLPattern.FindAllString(stripHTML(body), -1) {
		raw = strings.TrimRight(raw, ".,;)")
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		links = append(links, core.Link{URL: raw, Domain: linkDomain(raw)})
	}

	return links
}

func linkDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func stripHTML(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}

// parseAuthResults reads SPF/DKIM/DMARC outcomes from an
// Authentication-Results header. Absent checks stay unknown.
func parseAuthResults(header string) (spf, dkim, dmarc core.AuthResult) {
	spf, dkim, dmarc = core.AuthUnknown, core.AuthUnknown, core.AuthUnknown
	if header == "" {
		return spf, dkim, dmarc
	}

	for _, m := range authPattern.FindAllStringSubmatch(strings.ToLower(header), -1) {
		result := core.AuthFail
		if m[2] == "pass" {
			result = core.AuthPass
		} else if m[2] != "fail" && m[2] != "softfail" && m[2] != "permerror" {
			result = core.AuthUnknown
		}
		switch m[1] {
		case "spf":
			spf = result
		case "dkim":
			dkim = result
		case "dmarc":
			dmarc = result
		}
	}

	return spf, dkim, dmarc
}

// messageID uses the Message-Id header when present, otherwise a content
// hash, so re-analyzing the same message overwrites its prior result.
func messageID(msg *mail.Message, body string) string {
	if id := strings.Trim(msg.Header.Get("Message-Id"), "<> "); id != "" {
		return id
	}
	sum := sha256.Sum256([]byte(msg.Header.Get("From") + msg.Header.Get("Subject") + body))
	return hex.EncodeToString(sum[:8])
}
