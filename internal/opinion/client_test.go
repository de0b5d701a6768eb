package opinion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mailwatch/phishfilter/internal/core"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestConsultBuildsMetadataBlock(t *testing.T) {
	completer := &fakeCompleter{reply: `{"is_phishing": false, "phishing_score": 5}`}
	client := NewClient(completer, zap.NewNop(), 0)

	client.Consult(context.Background(), "hello world", core.OpinionMetadata{
		Sender:        "ceo@gmail.com",
		Subject:       "urgent wire transfer",
		SPF:           core.AuthPass,
		DKIM:          core.AuthFail,
		DMARC:         core.AuthUnknown,
		HasAttachment: true,
	})

	for _, want := range []string{
		"sender: ceo@gmail.com",
		"subject: urgent wire transfer",
		"spf_pass: Yes",
		"dkim_pass: No",
		"dmarc_pass: Unknown",
		"has_attachment: Yes",
		"hello world",
	} {
		if !strings.Contains(completer.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestConsultRecoversTransportError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("connection refused")}
	client := NewClient(completer, zap.NewNop(), 0)

	verdict := client.Consult(context.Background(), "body", core.OpinionMetadata{})
	if verdict.IsPhishing || verdict.Score != 0 {
		t.Errorf("failed call must yield benign zero verdict, got %t/%f", verdict.IsPhishing, verdict.Score)
	}
	if verdict.Err != "connection refused" {
		t.Errorf("error text must be preserved, got %q", verdict.Err)
	}
}

func TestConsultTruncatesBody(t *testing.T) {
	completer := &fakeCompleter{reply: `{"is_phishing": false, "phishing_score": 0}`}
	client := NewClient(completer, zap.NewNop(), 64)

	client.Consult(context.Background(), strings.Repeat("x", 1000), core.OpinionMetadata{})
	if !strings.Contains(completer.prompt, "Content truncated") {
		t.Error("oversized body must be truncated in the prompt")
	}
	if strings.Contains(completer.prompt, strings.Repeat("x", 65)) {
		t.Error("truncated body still exceeds the limit")
	}
}
