// Package language normalizes caption locale identifiers and matches them
// against a preference list.
//
// Platform captions arrive tagged with locales such as "en_US" while users
// configure preferences as locales, ISO 639 codes, or plain words
// ("english"). Everything is reduced to an ISO 639-1 base before comparing.
package language
