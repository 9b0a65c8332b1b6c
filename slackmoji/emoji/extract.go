package emoji

import (
	"context"
	"regexp"

	"github.com/slack-go/slack"
)

var (
	emojiPattern = regexp.MustCompile(`:([a-zA-Z0-9_+-]+):`)
	// Slack's canonical mention syntax: <@U123> or <@U123|label>
	mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]+)?>`)
	// Display-format mention typed by hand: @name
	displayPattern = regexp.MustCompile(`@([a-zA-Z0-9._-]+)`)
)

// NameResolver resolves a bare @name mention to a Slack user ID.
type NameResolver interface {
	ResolveDisplayName(ctx context.Context, name string) (string, bool)
}

// ExtractEmojiNames returns the emoji names found in message text, in order
// of appearance. Duplicates are preserved: each occurrence counts separately.
func ExtractEmojiNames(text string) []string {
	matches := emojiPattern.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// ExtractMentions collects mentioned user IDs from a message, deduplicated in
// first-seen order. Sources, most reliable first:
//
//  1. rich text blocks from the event payload
//  2. canonical <@ID> mentions in the text
//  3. bare @name tokens, resolved through the directory (unresolved dropped)
func ExtractMentions(ctx context.Context, text string, blocks *slack.Blocks, resolver NameResolver) []string {
	var ids []string

	ids = append(ids, mentionsFromBlocks(blocks)...)

	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}

	if resolver != nil {
		// Strip canonical mentions first so their labels are not re-matched
		// as display names.
		stripped := mentionPattern.ReplaceAllString(text, "")
		for _, m := range displayPattern.FindAllStringSubmatch(stripped, -1) {
			if id, ok := resolver.ResolveDisplayName(ctx, m[1]); ok {
				ids = append(ids, id)
			}
		}
	}

	return dedupe(ids)
}

// mentionsFromBlocks walks rich text blocks for explicit user elements.
// Unexpected shapes are skipped, never fatal.
func mentionsFromBlocks(blocks *slack.Blocks) []string {
	if blocks == nil {
		return nil
	}

	var ids []string
	for _, block := range blocks.BlockSet {
		rich, ok := block.(*slack.RichTextBlock)
		if !ok {
			continue
		}
		for _, element := range rich.Elements {
			section, ok := element.(*slack.RichTextSection)
			if !ok {
				continue
			}
			for _, inner := range section.Elements {
				if user, ok := inner.(*slack.RichTextSectionUserElement); ok && user.UserID != "" {
					ids = append(ids, user.UserID)
				}
			}
		}
	}
	return ids
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
