// Package recorder runs a course recording session.
//
// Manager owns at most one Session. Start discovers the course outline
// through the page agent (or the platform API when the page exposes a course
// id) and launches a loop that walks the outline section by section. Each
// lecture is either navigated to, with the transcript reported back by the
// page, or fetched directly. Failures are absorbed by a consecutive-error
// budget; reaching it ends the session. Progress is checkpointed after every
// lecture so a restarted daemon can Resume.
package recorder
