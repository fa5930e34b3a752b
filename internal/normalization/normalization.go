package normalization

import (
  "strings"
)

// ParseInputString trims surrounding whitespace and collapses interior runs of
// whitespace down to single spaces.
func ParseInputString(in string) string {
  return strings.Join(strings.Fields(in), " ")
}

func ParseInputStringPtr(in *string) *string {
  if in == nil {
    return nil
  }
  out := ParseInputString(*in)
  return &out
}

func ParseEmail(in string) string {
  return strings.ToLower(ParseInputString(in))
}
