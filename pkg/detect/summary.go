package detect

import "strings"

// Summarize builds the spoken summary for a set of detected labels.
//
// Zero labels produce an explicit negative, a single label is announced with
// an article, and two or more labels join all but the last with commas:
//
//	{}             -> "I could not detect any objects."
//	{"dog"}        -> "I see a dog."
//	{"dog", "cat"} -> "I see dog, and a cat."
func Summarize(labels []string) string {
	switch len(labels) {
	case 0:
		return "I could not detect any objects."
	case 1:
		return "I see a " + labels[0] + "."
	default:
		head := strings.Join(labels[:len(labels)-1], ", ")
		return "I see " + head + ", and a " + labels[len(labels)-1] + "."
	}
}
