package normalization

const (
  // DefaultConversationTitle is the placeholder a conversation starts with
  // until the first user message seeds a real one.
  DefaultConversationTitle = "New Chat"

  // TitleMaxLen is the stored column width for conversation titles.
  TitleMaxLen = 255

  // TitleSeedLen is the shorter cut used when a title is seeded from the
  // first user message of a conversation.
  TitleSeedLen = 80
)

// TruncateTitle cuts a title down to max runes. Truncation is rune based so a
// multi-byte character is never split at the boundary.
func TruncateTitle(title string, max int) string {
  runes := []rune(title)
  if len(runes) <= max {
    return title
  }
  return string(runes[:max])
}

// DeriveTitle returns the title a conversation should carry after its first
// user message. While the current title is empty or still the default
// placeholder it is replaced by the message text truncated to TitleSeedLen;
// otherwise the current title is kept. Applying it twice with the same message
// yields the same result.
func DeriveTitle(currentTitle, firstUserMessage string) string {
  if currentTitle != "" && currentTitle != DefaultConversationTitle {
    return currentTitle
  }
  seeded := TruncateTitle(ParseInputString(firstUserMessage), TitleSeedLen)
  if seeded == "" {
    return DefaultConversationTitle
  }
  return seeded
}
