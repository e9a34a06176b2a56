// Package classify decides what a user submission is and what it is missing.
//
// Classify maps free text to one of four modes (brief, referenceLink,
// briefWithLink, unknown) with a heuristic confidence. It is pure: the same
// input always yields the same Classification. Advise and FollowUps list the
// standard posting fields the brief does not mention yet, as canned questions
// in a fixed order.
//
// The vocabularies behind both decisions are data, loaded from the embedded
// vocabulary.yaml or from a replacement supplied through LoadVocabulary.
package classify
