// Package platform talks to the course platform's content API.
//
// When the course page exposes a course id, the recorder uses this client
// instead of driving the page agent: Curriculum pages through the curriculum
// listing to build the outline and Transcript downloads each lecture's caption
// track and extracts its lines. Authentication is passed through from the
// browser session (cookie or bearer token); the client never logs in. Rate
// limits and server errors are retried with exponential backoff.
package platform
