package emoji

import (
	"context"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
)

type stubResolver map[string]string

func (s stubResolver) ResolveDisplayName(_ context.Context, name string) (string, bool) {
	id, ok := s[name]
	return id, ok
}

func TestExtractEmojiNames(t *testing.T) {
	assert.Equal(t, []string{"fire", "100"}, ExtractEmojiNames("Great job :fire: :100:"))
	assert.Empty(t, ExtractEmojiNames("no emojis here"))
	assert.Equal(t, []string{"thumbsup", "thumbsup"}, ExtractEmojiNames(":thumbsup: :thumbsup:"))
	assert.Equal(t, []string{"+1", "party-parrot"}, ExtractEmojiNames(":+1: and :party-parrot:"))
}

func TestExtractEmojiNamesIgnoresMalformed(t *testing.T) {
	assert.Empty(t, ExtractEmojiNames(":not closed"))
	assert.Empty(t, ExtractEmojiNames("::"))
}

func TestExtractMentionsCanonical(t *testing.T) {
	ctx := context.Background()

	ids := ExtractMentions(ctx, "thanks <@U123> and <@U456|jane>", nil, nil)
	assert.Equal(t, []string{"U123", "U456"}, ids)
}

func TestExtractMentionsDeduplicates(t *testing.T) {
	ctx := context.Background()

	ids := ExtractMentions(ctx, "<@U123> <@U123> <@U456>", nil, nil)
	assert.Equal(t, []string{"U123", "U456"}, ids)
}

func TestExtractMentionsFromBlocks(t *testing.T) {
	ctx := context.Background()
	blocks := &slack.Blocks{
		BlockSet: []slack.Block{
			&slack.RichTextBlock{
				Type: slack.MBTRichText,
				Elements: []slack.RichTextElement{
					&slack.RichTextSection{
						Type: slack.RTESection,
						Elements: []slack.RichTextSectionElement{
							&slack.RichTextSectionUserElement{
								Type:   slack.RTSEUser,
								UserID: "U999",
							},
						},
					},
				},
			},
		},
	}

	ids := ExtractMentions(ctx, "plain text", blocks, nil)
	assert.Equal(t, []string{"U999"}, ids)
}

func TestExtractMentionsDisplayName(t *testing.T) {
	ctx := context.Background()
	resolver := stubResolver{"jane": "U777"}

	ids := ExtractMentions(ctx, "nice work @jane and @unknown", nil, resolver)
	assert.Equal(t, []string{"U777"}, ids)
}

func TestExtractMentionsBlocksWinOverText(t *testing.T) {
	ctx := context.Background()
	blocks := &slack.Blocks{
		BlockSet: []slack.Block{
			&slack.RichTextBlock{
				Type: slack.MBTRichText,
				Elements: []slack.RichTextElement{
					&slack.RichTextSection{
						Type: slack.RTESection,
						Elements: []slack.RichTextSectionElement{
							&slack.RichTextSectionUserElement{
								Type:   slack.RTSEUser,
								UserID: "U123",
							},
						},
					},
				},
			},
		},
	}

	// Same user in both sources still comes out once.
	ids := ExtractMentions(ctx, "<@U123>", blocks, nil)
	assert.Equal(t, []string{"U123"}, ids)
}
