package normalization

import (
  "strings"
  "testing"
)

func TestDeriveTitleSeedsFromFirstMessage(t *testing.T) {
  title := DeriveTitle("", "How do I center a div?")
  if title != "How do I center a div?" {
    t.Fatalf("unexpected title: %q", title)
  }
}

func TestDeriveTitleReplacesDefault(t *testing.T) {
  title := DeriveTitle(DefaultConversationTitle, "Explain goroutines")
  if title != "Explain goroutines" {
    t.Fatalf("unexpected title: %q", title)
  }
}

func TestDeriveTitleIsIdempotent(t *testing.T) {
  first := DeriveTitle("", "What is a monad?")
  second := DeriveTitle(first, "Ignore all of that, new topic")
  if second != first {
    t.Fatalf("title changed on second derivation: %q -> %q", first, second)
  }
}

func TestDeriveTitleFallsBackOnWhitespace(t *testing.T) {
  title := DeriveTitle("", "   \n\t  ")
  if title != DefaultConversationTitle {
    t.Fatalf("expected default title, got %q", title)
  }
}

func TestDeriveTitleTruncatesAtSeedLength(t *testing.T) {
  long := strings.Repeat("a", 300)
  title := DeriveTitle("", long)
  if got := len([]rune(title)); got != TitleSeedLen {
    t.Fatalf("expected %d runes, got %d", TitleSeedLen, got)
  }
}

func TestDeriveTitleTruncatesMultibyteSafely(t *testing.T) {
  long := strings.Repeat("héllo wörld ", 20)
  title := DeriveTitle("", long)
  if got := len([]rune(title)); got > TitleSeedLen {
    t.Fatalf("expected at most %d runes, got %d", TitleSeedLen, got)
  }
  if !strings.HasPrefix(long, title) {
    t.Fatalf("truncation mangled the string: %q", title)
  }
}

func TestDeriveTitleCollapsesWhitespace(t *testing.T) {
  title := DeriveTitle("", "  hello \n  world  ")
  if title != "hello world" {
    t.Fatalf("unexpected title: %q", title)
  }
}

func TestTruncateTitleShortInputUnchanged(t *testing.T) {
  if got := TruncateTitle("short", 255); got != "short" {
    t.Fatalf("unexpected: %q", got)
  }
}
